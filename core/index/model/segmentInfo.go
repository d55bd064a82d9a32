package model

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
)

// Length of a segment ID in bytes
const ID_LENGTH = 16

// Generates a random segment ID.
func NewSegmentID() []byte {
	id := uuid.New()
	return append([]byte(nil), id[:]...)
}

// Formats a segment ID for log and CLI output.
func IDToString(id []byte) string {
	if id == nil {
		return "(null)"
	}
	return hex.EncodeToString(id)
}

// index/SegmentInfo.java

/*
Information about a segment such as its name, directory, and files
related to the segment.
*/
type SegmentInfo struct {
	Dir         store.Directory
	version     string
	Name        string
	maxDoc      int // number of docs in seg
	id          []byte
	codec       string
	diagnostics map[string]string
	files       map[string]bool // must use checkFileNames()

	*AttributesMixin
}

func NewSegmentInfo(dir store.Directory, version, name string, maxDoc int,
	codec string, id []byte, diagnostics map[string]string) *SegmentInfo {

	assert2(id == nil || len(id) == ID_LENGTH, "invalid id: %v", id)
	return &SegmentInfo{
		Dir:             dir,
		version:         version,
		Name:            name,
		maxDoc:          maxDoc,
		id:              id,
		codec:           codec,
		diagnostics:     diagnostics,
		AttributesMixin: &AttributesMixin{},
	}
}

/* Returns diagnostics saved into the segment when it was written. */
func (si *SegmentInfo) Diagnostics() map[string]string {
	return si.diagnostics
}

/* Return the name of the postings format that wrote this segment. */
func (si *SegmentInfo) Codec() string {
	return si.codec
}

/* Returns number of documents in this segment (deletions are not taken into account). */
func (si *SegmentInfo) MaxDoc() int {
	return si.maxDoc
}

/* Return the id that uniquely identifies this segment. */
func (si *SegmentInfo) ID() []byte {
	return si.id
}

/* Returns the version of the code which wrote the segment. */
func (si *SegmentInfo) Version() string {
	return si.version
}

/* Return all files referenced by this SegmentInfo. */
func (si *SegmentInfo) Files() map[string]bool {
	assert2(si.files != nil, "files were not computed yet")
	return si.files
}

// Returns the files in sorted order.
func (si *SegmentInfo) FileNames() []string {
	names := make([]string, 0, len(si.files))
	for name := range si.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

/* Sets the files written for this segment. */
func (si *SegmentInfo) SetFiles(files map[string]bool) {
	si.checkFileNames(files)
	si.files = files
}

/* Add this file to the set of files written for this segment. */
func (si *SegmentInfo) AddFile(file string) {
	si.checkFileNames(map[string]bool{file: true})
	if si.files == nil {
		si.files = make(map[string]bool)
	}
	si.files[file] = true
}

func (si *SegmentInfo) checkFileNames(files map[string]bool) {
	for file := range files {
		if !util.CODEC_FILE_PATTERN.MatchString(file) {
			panic(fmt.Sprintf("invalid codec filename '%v', must match: %v", file, util.CODEC_FILE_PATTERN))
		}
	}
}

func (si *SegmentInfo) String() string {
	var buf bytes.Buffer
	buf.WriteString(si.Name)
	buf.WriteString("(")
	if si.version == "" {
		buf.WriteString("?")
	} else {
		buf.WriteString(si.version)
	}
	buf.WriteString("):C")
	fmt.Fprintf(&buf, "%v", si.maxDoc)
	if si.codec != "" {
		fmt.Fprintf(&buf, ":[codec=%v]", si.codec)
	}
	return buf.String()
}
