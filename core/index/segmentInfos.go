package index

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ironsweet/esengine/core/codec"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("index")

// index/SegmentInfos.java

const (
	SEGMENTS_CODEC = "segments"

	// The first version that embeds per segment metadata in segments_N
	SEGMENTS_VERSION_START   = 0
	SEGMENTS_VERSION_CURRENT = SEGMENTS_VERSION_START
)

/*
A collection of segment infos with a generation. On disk this is the
segments_N file, with the generation written in base 36:

	SegmentsFile --> IndexHeader, Version, NameCounter, SegCount,
		<SegName, SegID, SegVersion, SegCodec, MaxDoc, DelCount, Files, Diagnostics>^SegCount,
		CommitUserData, Footer

- IndexHeader carries the commit ID and the generation as suffix.
- Version counts how often the index has been changed.
- NameCounter is used to generate names for new segment files.
- Files is the set of codec files written for the segment.
- CommitUserData stores an optional user-supplied opaque map, such as
  sequence-number bookkeeping.
*/
type SegmentInfos struct {
	// Used to name new segments.
	counter int
	// Counts how often the index has been changed.
	version int64
	// generation of the "segments_N" for the next commit
	generation int64
	// generation of the "segments_N" file we last successfully read or wrote
	lastGeneration int64
	// ID of the last read or written commit
	id []byte

	userData map[string]string
	Segments []*SegmentCommitInfo
}

func NewSegmentInfos() *SegmentInfos {
	return &SegmentInfos{
		generation:     0,
		lastGeneration: -1,
		userData:       make(map[string]string),
	}
}

// Returns the generation of the last commit file in the given list,
// or -1 when there is none.
func LastCommitGeneration(files []string) int64 {
	max := int64(-1)
	for _, file := range files {
		if strings.HasPrefix(file, util.SEGMENTS) && file != util.SEGMENTS+".gen" {
			gen, err := util.GenerationFromSegmentsFileName(file)
			if err != nil {
				continue
			}
			if gen > max {
				max = gen
			}
		}
	}
	return max
}

// Returns the name of the last commit file in the directory, or the
// empty string.
func LastCommitSegmentsFileName(directory store.Directory) (string, error) {
	files, err := directory.ListAll()
	if err != nil {
		return "", err
	}
	return util.FileNameFromGeneration(util.SEGMENTS, "", LastCommitGeneration(files)), nil
}

// Returns the segments_N file of the last read or written commit.
func (sis *SegmentInfos) SegmentsFileName() string {
	return util.FileNameFromGeneration(util.SEGMENTS, "", sis.lastGeneration)
}

// Returns the generation of the last read or written commit.
func (sis *SegmentInfos) Generation() int64 { return sis.lastGeneration }

func (sis *SegmentInfos) Version() int64 { return sis.version }

func (sis *SegmentInfos) ID() []byte { return sis.id }

func (sis *SegmentInfos) nextSegmentsFileName() string {
	nextGeneration := int64(1)
	if sis.generation > 0 {
		nextGeneration = sis.generation + 1
	}
	return util.FileNameFromGeneration(util.SEGMENTS, "", nextGeneration)
}

/*
Reads a particular segments_N file. The read verifies the header, the
footer checksum and every segment entry.
*/
func ReadCommit(directory store.Directory, segmentFileName string) (sis *SegmentInfos, err error) {
	generation, err := util.GenerationFromSegmentsFileName(segmentFileName)
	if err != nil {
		return nil, err
	}

	input, err := directory.OpenChecksumInput(segmentFileName, store.IO_CONTEXT_READ)
	if err != nil {
		return nil, err
	}
	var success = false
	defer func() {
		if success {
			err = input.Close()
		} else {
			util.CloseWhileSuppressingError(input)
		}
	}()

	if _, err = codec.CheckHeader(input, SEGMENTS_CODEC, SEGMENTS_VERSION_START, SEGMENTS_VERSION_CURRENT); err != nil {
		return nil, err
	}
	id := make([]byte, model.ID_LENGTH)
	if err = input.ReadBytes(id); err != nil {
		return nil, err
	}
	if err = codec.CheckIndexHeaderSuffix(input, strconv.FormatInt(generation, 36)); err != nil {
		return nil, err
	}

	sis = NewSegmentInfos()
	sis.id = id
	sis.generation, sis.lastGeneration = generation, generation
	if sis.version, err = input.ReadLong(); err != nil {
		return nil, err
	}
	counter, err := input.ReadVInt()
	if err != nil {
		return nil, err
	}
	sis.counter = int(counter)
	numSegments, err := input.ReadInt()
	if err != nil {
		return nil, err
	}
	if numSegments < 0 {
		return nil, model.NewCorruptIndexError(input, "invalid segment count: %v", numSegments)
	}
	for seg := 0; seg < int(numSegments); seg++ {
		info, err := readSegmentCommitInfo(directory, input)
		if err != nil {
			return nil, err
		}
		sis.Segments = append(sis.Segments, info)
	}
	if sis.userData, err = input.ReadStringStringMap(); err != nil {
		return nil, err
	}
	if _, err = codec.CheckFooter(input); err != nil {
		return nil, err
	}
	success = true
	return sis, nil
}

func readSegmentCommitInfo(directory store.Directory, input store.ChecksumIndexInput) (*SegmentCommitInfo, error) {
	segName, err := input.ReadString()
	if err != nil {
		return nil, err
	}
	segID := make([]byte, model.ID_LENGTH)
	if err = input.ReadBytes(segID); err != nil {
		return nil, err
	}
	versionString, err := input.ReadString()
	if err != nil {
		return nil, err
	}
	version, err := util.ParseVersion(versionString)
	if err != nil {
		return nil, model.NewCorruptIndexError(input, "segment %v: %v", segName, err)
	}
	if !version.OnOrAfter(util.VERSION_MIN_SUPPORTED) {
		return nil, model.NewIndexFormatTooOldError(input, int32(version),
			int32(util.VERSION_MIN_SUPPORTED), int32(util.VERSION_LATEST))
	}
	codecName, err := input.ReadString()
	if err != nil {
		return nil, err
	}
	maxDoc, err := input.ReadVInt()
	if err != nil {
		return nil, err
	}
	delCount, err := input.ReadVInt()
	if err != nil {
		return nil, err
	}
	if delCount < 0 || delCount > maxDoc {
		return nil, model.NewCorruptIndexError(input, "invalid deletion count: %v vs maxDoc=%v", delCount, maxDoc)
	}
	files, err := input.ReadStringSet()
	if err != nil {
		return nil, err
	}
	diagnostics, err := input.ReadStringStringMap()
	if err != nil {
		return nil, err
	}
	for file := range files {
		if !util.CODEC_FILE_PATTERN.MatchString(file) {
			return nil, model.NewCorruptIndexError(input, "invalid codec filename '%v' for segment %v", file, segName)
		}
	}
	info := model.NewSegmentInfo(directory, versionString, segName, int(maxDoc), codecName, segID, diagnostics)
	info.SetFiles(files)
	return NewSegmentCommitInfo(info, int(delCount)), nil
}

/*
Finds the most recent segments_N file and reads it. If reading fails
and an older commit exists, the previous generation is tried once,
since a concurrent commit may have replaced the listing in between.
*/
func ReadLatestCommit(directory store.Directory) (*SegmentInfos, error) {
	files, err := directory.ListAll()
	if err != nil {
		return nil, err
	}
	gen := LastCommitGeneration(files)
	if gen == -1 {
		return nil, errors.Wrapf(os.ErrNotExist, "no segments* file found in %v: files: %v", directory, files)
	}
	name := util.FileNameFromGeneration(util.SEGMENTS, "", gen)
	sis, err := ReadCommit(directory, name)
	if err == nil {
		return sis, nil
	}
	if gen > 1 {
		prev := util.FileNameFromGeneration(util.SEGMENTS, "", gen-1)
		if directory.FileExists(prev) {
			log.Debugf("primary error on '%v': %v; fallback to prior segment file '%v'", name, err, prev)
			if sis, err2 := ReadCommit(directory, prev); err2 == nil {
				return sis, nil
			}
		}
	}
	return nil, err
}

// Reads the total number of documents, deleted ones included, of
// the given commit.
func ReadCommitDocCount(commit model.IndexCommit) (int, error) {
	sis, err := ReadCommit(commit.Directory(), commit.SegmentsFileName())
	if err != nil {
		return 0, err
	}
	return sis.TotalMaxDoc(), nil
}

/*
Writes the next segments_N file and syncs it. On failure the partial
file is removed and the generation is kept so a retry writes the same
file name again.
*/
func (sis *SegmentInfos) Commit(directory store.Directory) (err error) {
	segmentFileName := sis.nextSegmentsFileName()
	generation, err := util.GenerationFromSegmentsFileName(segmentFileName)
	if err != nil {
		return err
	}
	id := model.NewSegmentID()

	out, err := directory.CreateOutput(segmentFileName, store.IO_CONTEXT_DEFAULT)
	if err != nil {
		return err
	}
	var success = false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(out)
			util.DeleteFilesIgnoringErrors(directory, segmentFileName)
		}
	}()

	if err = codec.WriteIndexHeader(out, SEGMENTS_CODEC, SEGMENTS_VERSION_CURRENT,
		id, strconv.FormatInt(generation, 36)); err != nil {
		return err
	}
	if err = out.WriteLong(sis.version); err != nil {
		return err
	}
	if err = out.WriteVInt(int32(sis.counter)); err != nil {
		return err
	}
	if err = out.WriteInt(int32(len(sis.Segments))); err != nil {
		return err
	}
	for _, si := range sis.Segments {
		if err = si.write(out); err != nil {
			return err
		}
	}
	if err = out.WriteStringStringMap(sis.userData); err != nil {
		return err
	}
	if err = codec.WriteFooter(out); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	if err = directory.Sync([]string{segmentFileName}); err != nil {
		return err
	}
	success = true
	sis.id = id
	sis.generation, sis.lastGeneration = generation, generation
	return nil
}

// Returns a new segment name, unique within this commit lineage.
func (sis *SegmentInfos) NewSegmentName() string {
	sis.version++
	name := "_" + strconv.FormatInt(int64(sis.counter), 36)
	sis.counter++
	return name
}

func (sis *SegmentInfos) Add(si *SegmentCommitInfo) {
	sis.Segments = append(sis.Segments, si)
	sis.version++
}

func (sis *SegmentInfos) Size() int { return len(sis.Segments) }

// Returns sum of all segment's maxDocs. Deletes are not counted.
func (sis *SegmentInfos) TotalMaxDoc() int {
	count := 0
	for _, info := range sis.Segments {
		count += info.Info.MaxDoc()
	}
	return count
}

// Returns the user data of this commit. The returned map must not be
// modified.
func (sis *SegmentInfos) UserData() map[string]string { return sis.userData }

// Replaces the user data stored with the next commit.
func (sis *SegmentInfos) SetUserData(data map[string]string) {
	sis.userData = make(map[string]string, len(data))
	for k, v := range data {
		sis.userData[k] = v
	}
	sis.version++
}

/*
Returns all file names referenced by SegmentInfo. The returned
collection is recomputed on each invocation.
*/
func (sis *SegmentInfos) Files(includeSegmentsFile bool) []string {
	files := make(map[string]bool)
	if includeSegmentsFile {
		if name := sis.SegmentsFileName(); name != "" {
			files[name] = true
		}
	}
	for _, info := range sis.Segments {
		assert2(info.Info.Dir != nil, "segment %v has no directory", info.Info.Name)
		for _, file := range info.Files() {
			files[file] = true
		}
	}
	ans := make([]string, 0, len(files))
	for file := range files {
		ans = append(ans, file)
	}
	sort.Strings(ans)
	return ans
}

// Returns a copy of this instance, sharing the segment infos.
func (sis *SegmentInfos) Clone() *SegmentInfos {
	clone := *sis
	clone.Segments = make([]*SegmentCommitInfo, len(sis.Segments))
	for i, info := range sis.Segments {
		clone.Segments[i] = info.Clone()
	}
	clone.userData = make(map[string]string, len(sis.userData))
	for k, v := range sis.userData {
		clone.userData[k] = v
	}
	return &clone
}

func (sis *SegmentInfos) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v:", sis.SegmentsFileName())
	for i, info := range sis.Segments {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(info.String())
	}
	return b.String()
}
