package model

import (
	"fmt"
)

// index/FieldInfo.java

/*
Access to the Field Info file that describes document fields and
whether or not they are indexed. Each segment has a separate Field
Info file.
*/
type FieldInfo struct {
	// Field's name
	Name string
	// Internal field number
	Number int32

	indexOptions  IndexOptions
	storePayloads bool
	omitNorms     bool

	*AttributesMixin
}

func NewFieldInfo(name string, number int32, indexOptions IndexOptions,
	storePayloads, omitNorms bool, attributes map[string]string) *FieldInfo {

	assert2(number >= 0, "illegal field number: %v for field %v", number, name)
	fi := &FieldInfo{
		Name:            name,
		Number:          number,
		indexOptions:    indexOptions,
		AttributesMixin: &AttributesMixin{attributes},
	}
	if indexOptions != INDEX_OPT_NONE {
		fi.omitNorms = omitNorms
		// payloads only make sense together with positions
		fi.storePayloads = storePayloads && indexOptions >= INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS
	}
	return fi
}

/* Returns IndexOptions for the field, or INDEX_OPT_NONE if the field is not indexed */
func (info *FieldInfo) IndexOptions() IndexOptions { return info.indexOptions }

/* Returns true if this field is indexed. */
func (info *FieldInfo) IsIndexed() bool { return info.indexOptions != INDEX_OPT_NONE }

/* Returns true if norms are explicitly omitted for this field */
func (info *FieldInfo) OmitsNorms() bool { return info.omitNorms }

/* Returns true if this field actually has any norms. */
func (info *FieldInfo) HasNorms() bool { return info.IsIndexed() && !info.omitNorms }

/* Returns true if any payloads exist for this field. */
func (info *FieldInfo) HasPayloads() bool { return info.storePayloads }

func (info *FieldInfo) String() string {
	return fmt.Sprintf("%v-%v, indexOptions=%v, hasPayloads=%v, omitNorms=%v, attributes=%v",
		info.Number, info.Name, info.indexOptions, info.storePayloads, info.omitNorms, info.attributes)
}

// index/FieldInfo.java

/*
Controls how much information is stored in the postings lists.
Options are ordered: each one includes everything the previous one
records.
*/
type IndexOptions int

const (
	// Not indexed
	INDEX_OPT_NONE = IndexOptions(iota)
	// Only documents are indexed: term frequencies and positions are
	// omitted.
	INDEX_OPT_DOCS_ONLY
	// Only documents and term frequencies are indexed.
	INDEX_OPT_DOCS_AND_FREQS
	// Indexes documents, frequencies and positions.
	INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS
	// Indexes documents, frequencies, positions and offsets.
	INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS_AND_OFFSETS
)

func (opts IndexOptions) HasFreqs() bool { return opts >= INDEX_OPT_DOCS_AND_FREQS }

func (opts IndexOptions) HasPositions() bool {
	return opts >= INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS
}

func (opts IndexOptions) HasOffsets() bool {
	return opts >= INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS_AND_OFFSETS
}

func (opts IndexOptions) String() string {
	switch opts {
	case INDEX_OPT_NONE:
		return "NONE"
	case INDEX_OPT_DOCS_ONLY:
		return "DOCS"
	case INDEX_OPT_DOCS_AND_FREQS:
		return "DOCS_AND_FREQS"
	case INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS:
		return "DOCS_AND_FREQS_AND_POSITIONS"
	case INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS_AND_OFFSETS:
		return "DOCS_AND_FREQS_AND_POSITIONS_AND_OFFSETS"
	}
	return fmt.Sprintf("IndexOptions(%d)", int(opts))
}

// Parses the String() form back, for metadata files and CLI flags.
func ParseIndexOptions(s string) (IndexOptions, error) {
	for opts := INDEX_OPT_NONE; opts <= INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS_AND_OFFSETS; opts++ {
		if opts.String() == s {
			return opts, nil
		}
	}
	return INDEX_OPT_NONE, fmt.Errorf("unknown index options: %v", s)
}

type AttributesMixin struct {
	attributes map[string]string
}

/* Get a codec attribute value, or "" if it does not exist */
func (m *AttributesMixin) Attribute(key string) string {
	if m.attributes == nil {
		return ""
	}
	return m.attributes[key]
}

/* Puts a codec attribute value, returning the previous value. */
func (m *AttributesMixin) PutAttribute(key, value string) string {
	if m.attributes == nil {
		m.attributes = make(map[string]string)
	}
	prev := m.attributes[key]
	m.attributes[key] = value
	return prev
}

/* Returns the internal codec attributes map. */
func (m *AttributesMixin) Attributes() map[string]string {
	return m.attributes
}
