package spi

import (
	"strconv"
	"strings"

	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
)

// index/SegmentWriteState.java

/* Holder class for common parameters used during write. */
type SegmentWriteState struct {
	InfoStream    util.InfoStream
	Directory     store.Directory
	SegmentInfo   *model.SegmentInfo
	FieldInfos    model.FieldInfos
	SegmentSuffix string
	Context       store.IOContext
}

func NewSegmentWriteState(infoStream util.InfoStream,
	dir store.Directory, segmentInfo *model.SegmentInfo,
	fieldInfos model.FieldInfos, segmentSuffix string,
	ctx store.IOContext) *SegmentWriteState {

	assert2(assertSegmentSuffix(segmentSuffix), "invalid segment suffix: %v", segmentSuffix)
	if infoStream == nil {
		infoStream = util.NO_OUTPUT
	}
	return &SegmentWriteState{
		InfoStream:    infoStream,
		Directory:     dir,
		SegmentInfo:   segmentInfo,
		FieldInfos:    fieldInfos,
		SegmentSuffix: segmentSuffix,
		Context:       ctx,
	}
}

/* Create a shallow copy of SegmentWriteState with a new segment suffix. */
func NewSegmentWriteStateFrom(state *SegmentWriteState,
	segmentSuffix string) *SegmentWriteState {

	return NewSegmentWriteState(state.InfoStream, state.Directory,
		state.SegmentInfo, state.FieldInfos, segmentSuffix, state.Context)
}

// Returns the name of a file of this segment with the given extension.
func (s *SegmentWriteState) FileName(ext string) string {
	return util.SegmentFileName(s.SegmentInfo.Name, s.SegmentSuffix, ext)
}

func assertSegmentSuffix(segmentSuffix string) bool {
	if len(segmentSuffix) == 0 {
		return true
	}
	numParts := len(strings.SplitN(segmentSuffix, "_", 3))
	if numParts == 2 {
		return true
	}
	if numParts == 1 {
		_, err := strconv.ParseInt(segmentSuffix, 36, 64)
		return err == nil
	}
	return false
}

// index/SegmentReadState.java

type SegmentReadState struct {
	Dir           store.Directory
	SegmentInfo   *model.SegmentInfo
	FieldInfos    model.FieldInfos
	Context       store.IOContext
	SegmentSuffix string
}

func NewSegmentReadState(dir store.Directory,
	info *model.SegmentInfo, fieldInfos model.FieldInfos,
	context store.IOContext, segmentSuffix string) *SegmentReadState {

	return &SegmentReadState{dir, info, fieldInfos, context, segmentSuffix}
}

// Returns the name of a file of this segment with the given extension.
func (s *SegmentReadState) FileName(ext string) string {
	return util.SegmentFileName(s.SegmentInfo.Name, s.SegmentSuffix, ext)
}
