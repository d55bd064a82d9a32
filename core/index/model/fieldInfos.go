package model

import (
	"fmt"
	"sort"
)

// index/FieldInfos.java

// Collection of FieldInfo(s) (accessible by number of by name)
type FieldInfos struct {
	HasFreq     bool
	HasProx     bool
	HasPayloads bool
	HasOffsets  bool
	HasNorms    bool

	byNumber map[int32]*FieldInfo
	byName   map[string]*FieldInfo
	Values   []*FieldInfo // sorted by ID
}

func NewFieldInfos(infos []*FieldInfo) FieldInfos {
	self := FieldInfos{byNumber: make(map[int32]*FieldInfo), byName: make(map[string]*FieldInfo)}

	for _, info := range infos {
		assert2(info.Number >= 0, "illegal field number: %v for field %v", info.Number, info.Name)
		if prev, ok := self.byNumber[info.Number]; ok {
			panic(fmt.Sprintf("duplicate field numbers: %v and %v have: %v", prev.Name, info.Name, info.Number))
		}
		self.byNumber[info.Number] = info
		if prev, ok := self.byName[info.Name]; ok {
			panic(fmt.Sprintf("duplicate field names: %v and %v have: %v", prev.Number, info.Number, info.Name))
		}
		self.byName[info.Name] = info

		self.HasProx = self.HasProx || info.indexOptions.HasPositions()
		self.HasFreq = self.HasFreq || info.indexOptions.HasFreqs()
		self.HasOffsets = self.HasOffsets || info.indexOptions.HasOffsets()
		self.HasNorms = self.HasNorms || info.HasNorms()
		self.HasPayloads = self.HasPayloads || info.storePayloads
	}

	self.Values = make([]*FieldInfo, 0, len(infos))
	for _, info := range self.byNumber {
		self.Values = append(self.Values, info)
	}
	sort.Slice(self.Values, func(i, j int) bool {
		return self.Values[i].Number < self.Values[j].Number
	})
	return self
}

/* Returns the number of fields */
func (infos FieldInfos) Size() int {
	assertTrue(len(infos.byNumber) == len(infos.byName))
	return len(infos.byNumber)
}

/* Return the FieldInfo object referenced by the field name */
func (infos FieldInfos) FieldInfoByName(fieldName string) *FieldInfo {
	return infos.byName[fieldName]
}

/* Return the FieldInfo object referenced by the fieldNumber. */
func (infos FieldInfos) FieldInfoByNumber(fieldNumber int) *FieldInfo {
	assert2(fieldNumber >= 0, "Illegal field number: %v", fieldNumber)
	return infos.byNumber[int32(fieldNumber)]
}

// Returns the field names in sorted order.
func (infos FieldInfos) Names() []string {
	names := make([]string, 0, len(infos.byName))
	for name := range infos.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (fis FieldInfos) String() string {
	return fmt.Sprintf(`
hasFreq = %v
hasProx = %v
hasPayloads = %v
hasOffsets = %v
hasNorms = %v
%v`, fis.HasFreq, fis.HasProx, fis.HasPayloads, fis.HasOffsets,
		fis.HasNorms, fis.Values)
}

/*
Assigns field numbers in order of first appearance and collects the
FieldInfo of a segment being written. A field keeps the strongest
index options it was ever added with.
*/
type FieldInfosBuilder struct {
	byName map[string]*FieldInfo
	next   int32
}

func NewFieldInfosBuilder() *FieldInfosBuilder {
	return &FieldInfosBuilder{byName: make(map[string]*FieldInfo)}
}

func (b *FieldInfosBuilder) AddOrUpdate(name string, indexOptions IndexOptions,
	storePayloads, omitNorms bool) *FieldInfo {

	if fi, ok := b.byName[name]; ok {
		if indexOptions > fi.indexOptions {
			fi.indexOptions = indexOptions
		}
		fi.storePayloads = (fi.storePayloads || storePayloads) && fi.indexOptions.HasPositions()
		// once omitted, norms stay omitted
		fi.omitNorms = fi.omitNorms || omitNorms
		return fi
	}
	fi := NewFieldInfo(name, b.next, indexOptions, storePayloads, omitNorms, nil)
	b.next++
	b.byName[name] = fi
	return fi
}

func (b *FieldInfosBuilder) Finish() FieldInfos {
	infos := make([]*FieldInfo, 0, len(b.byName))
	for _, fi := range b.byName {
		infos = append(infos, fi)
	}
	return NewFieldInfos(infos)
}

func assertTrue(ok bool) {
	assert2(ok, "assert fail")
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}
