package index

import (
	"fmt"

	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
)

// index/SegmentCommitInfo.java

// Embeds a [read-only] SegmentInfo and adds per-commit fields.
type SegmentCommitInfo struct {
	// The SegmentInfo that we wrap.
	Info *model.SegmentInfo
	// How many deleted docs in the segment:
	delCount int

	sizeInBytes int64
}

func NewSegmentCommitInfo(info *model.SegmentInfo, delCount int) *SegmentCommitInfo {
	assert2(delCount >= 0 && delCount <= info.MaxDoc(),
		"invalid delCount=%v (maxDoc=%v)", delCount, info.MaxDoc())
	return &SegmentCommitInfo{
		Info:        info,
		delCount:    delCount,
		sizeInBytes: -1,
	}
}

func (si *SegmentCommitInfo) DelCount() int { return si.delCount }

// Returns total size in bytes of all files for this segment.
func (si *SegmentCommitInfo) SizeInBytes() (int64, error) {
	if si.sizeInBytes == -1 {
		var sum int64
		for _, fileName := range si.Files() {
			length, err := si.Info.Dir.FileLength(fileName)
			if err != nil {
				return 0, err
			}
			sum += length
		}
		si.sizeInBytes = sum
	}
	return si.sizeInBytes, nil
}

// Returns all files in use by this segment, sorted.
func (si *SegmentCommitInfo) Files() []string {
	return si.Info.FileNames()
}

func (si *SegmentCommitInfo) write(out store.IndexOutput) error {
	info := si.Info
	if err := out.WriteString(info.Name); err != nil {
		return err
	}
	assert2(len(info.ID()) == model.ID_LENGTH, "segment %v has no id", info.Name)
	if err := out.WriteBytes(info.ID()); err != nil {
		return err
	}
	if err := out.WriteString(info.Version()); err != nil {
		return err
	}
	if err := out.WriteString(info.Codec()); err != nil {
		return err
	}
	if err := out.WriteVInt(int32(info.MaxDoc())); err != nil {
		return err
	}
	if err := out.WriteVInt(int32(si.delCount)); err != nil {
		return err
	}
	if err := out.WriteStringSet(info.Files()); err != nil {
		return err
	}
	diagnostics := info.Diagnostics()
	if diagnostics == nil {
		diagnostics = map[string]string{}
	}
	return out.WriteStringStringMap(diagnostics)
}

func (si *SegmentCommitInfo) String() string {
	s := si.Info.String()
	if si.delCount != 0 {
		s = fmt.Sprintf("%v/%v", s, si.delCount)
	}
	return s
}

func (si *SegmentCommitInfo) Clone() *SegmentCommitInfo {
	return &SegmentCommitInfo{
		Info:        si.Info,
		delCount:    si.delCount,
		sizeInBytes: si.sizeInBytes,
	}
}
