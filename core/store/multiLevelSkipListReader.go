package store

import (
	"io"
	"math"

	"github.com/ironsweet/esengine/core/util"
)

// codecs/MultiLevelSkipListReader.java

type MultiLevelSkipListReaderSPI interface {
	// Subclasses must implement the actual skip data encoding in this
	// method. Returns the doc delta of the entry.
	ReadSkipData(level int, skipStream IndexInput) (int, error)
	// Called on every level switch so the implementation can copy its
	// per-level pointers into the "last" slots.
	SetLastSkipData(level int)
	// Called after the child level was repositioned.
	SeekChild(level int)
}

/*
This abstract type reads skip lists with multiple levels.

See MultiLevelSkipListWriter for the information about the encoding
of the multi level skip lists.

Implementations must supply ReadSkipData() which defines the actual
format of the skip data.
*/
type MultiLevelSkipListReader struct {
	spi MultiLevelSkipListReaderSPI

	// the maximum number of skip levels possible for this index
	maxNumberOfSkipLevels int
	// number of levels in this skip list
	numberOfSkipLevels int
	// the number of docs of the posting list this skip list belongs to
	docCount int

	// skipStream for each level
	skipStream []IndexInput
	// the start pointer of each skip level
	skipPointer []int64
	// skipInterval of each level
	skipInterval []int
	// number of docs skipped per level
	numSkipped []int
	// doc id of current skip entry per level
	SkipDoc []int
	// doc id of last read skip entry with docId <= target
	lastDoc int
	// child pointer of current skip entry per level
	childPointer []int64
	// childPointer of last read skip entry with docId <= target
	lastChildPointer int64

	skipMultiplier int
}

func NewMultiLevelSkipListReader(spi MultiLevelSkipListReaderSPI, skipStream IndexInput,
	maxSkipLevels, skipInterval, skipMultiplier int) *MultiLevelSkipListReader {

	r := &MultiLevelSkipListReader{
		spi:                   spi,
		maxNumberOfSkipLevels: maxSkipLevels,
		skipStream:            make([]IndexInput, maxSkipLevels),
		skipPointer:           make([]int64, maxSkipLevels),
		childPointer:          make([]int64, maxSkipLevels),
		numSkipped:            make([]int, maxSkipLevels),
		skipInterval:          make([]int, maxSkipLevels),
		SkipDoc:               make([]int, maxSkipLevels),
		skipMultiplier:        skipMultiplier,
	}
	r.skipStream[0] = skipStream
	r.skipInterval[0] = skipInterval
	for i := 1; i < maxSkipLevels; i++ {
		// cache skip intervals
		r.skipInterval[i] = r.skipInterval[i-1] * skipMultiplier
	}
	return r
}

// Returns the id of the doc to which the last call of SkipTo() has
// skipped.
func (r *MultiLevelSkipListReader) Doc() int {
	return r.lastDoc
}

/*
Skips entries to the first beyond the current whose document number
is greater than or equal to target. Returns the number of skipped
docs minus one block.
*/
func (r *MultiLevelSkipListReader) SkipTo(target int) (int, error) {
	// walk up the levels until highest level is found that has a skip
	// for this target
	level := 0
	for level < r.numberOfSkipLevels-1 && target > r.SkipDoc[level+1] {
		level++
	}

	for level >= 0 {
		if target > r.SkipDoc[level] {
			ok, err := r.loadNextSkip(level)
			if err != nil {
				return 0, err
			}
			if !ok {
				continue
			}
		} else {
			// no more skips on this level, go down one level
			if level > 0 && r.lastChildPointer > r.skipStream[level-1].FilePointer() {
				if err := r.seekChild(level - 1); err != nil {
					return 0, err
				}
			}
			level--
		}
	}

	return r.numSkipped[0] - r.skipInterval[0] - 1, nil
}

func (r *MultiLevelSkipListReader) loadNextSkip(level int) (bool, error) {
	// we have to skip, the target document is greater than the current
	// skip list entry
	r.setLastSkipData(level)

	r.numSkipped[level] += r.skipInterval[level]

	if r.numSkipped[level] > r.docCount {
		// this skip list is exhausted
		r.SkipDoc[level] = math.MaxInt32
		if r.numberOfSkipLevels > level {
			r.numberOfSkipLevels = level
		}
		return false, nil
	}

	// read next skip entry
	delta, err := r.spi.ReadSkipData(level, r.skipStream[level])
	if err != nil {
		return false, err
	}
	r.SkipDoc[level] += delta

	if level != 0 {
		// read the child pointer if we are not on the leaf level
		childPointer, err := r.skipStream[level].ReadVLong()
		if err != nil {
			return false, err
		}
		r.childPointer[level] = childPointer + r.skipPointer[level-1]
	}
	return true, nil
}

// Seeks the skip entry on the given level
func (r *MultiLevelSkipListReader) seekChild(level int) error {
	if err := r.skipStream[level].Seek(r.lastChildPointer); err != nil {
		return err
	}
	r.numSkipped[level] = r.numSkipped[level+1] - r.skipInterval[level+1]
	r.SkipDoc[level] = r.lastDoc
	if level > 0 {
		childPointer, err := r.skipStream[level].ReadVLong()
		if err != nil {
			return err
		}
		r.childPointer[level] = childPointer + r.skipPointer[level-1]
	}
	r.spi.SeekChild(level)
	return nil
}

// Releases the per-level clones. The base stream stays with the caller.
func (r *MultiLevelSkipListReader) Close() error {
	var streams []io.Closer
	for i := 1; i < len(r.skipStream); i++ {
		if r.skipStream[i] != nil {
			streams = append(streams, r.skipStream[i])
			r.skipStream[i] = nil
		}
	}
	return util.Close(streams...)
}

// Initializes the reader, for reuse on a new term.
func (r *MultiLevelSkipListReader) Init(skipPointer int64, df int) error {
	assert2(skipPointer >= 0 && skipPointer <= r.skipStream[0].Length(),
		"invalid skip pointer: %v, length=%v", skipPointer, r.skipStream[0].Length())
	r.skipPointer[0] = skipPointer
	r.docCount = df
	for i := range r.SkipDoc {
		r.SkipDoc[i] = 0
		r.numSkipped[i] = 0
		r.childPointer[i] = 0
	}
	r.lastDoc = 0
	r.lastChildPointer = 0

	if err := r.Close(); err != nil {
		return err
	}
	return r.loadSkipLevels()
}

// Loads the skip levels
func (r *MultiLevelSkipListReader) loadSkipLevels() error {
	if r.docCount <= r.skipInterval[0] {
		r.numberOfSkipLevels = 1
	} else {
		r.numberOfSkipLevels = 1 + util.Log(int64(r.docCount/r.skipInterval[0]), r.skipMultiplier)
	}
	if r.numberOfSkipLevels > r.maxNumberOfSkipLevels {
		r.numberOfSkipLevels = r.maxNumberOfSkipLevels
	}

	if err := r.skipStream[0].Seek(r.skipPointer[0]); err != nil {
		return err
	}

	for i := r.numberOfSkipLevels - 1; i > 0; i-- {
		// the length of the current level
		length, err := r.skipStream[0].ReadVLong()
		if err != nil {
			return err
		}

		// the start pointer of the current level
		r.skipPointer[i] = r.skipStream[0].FilePointer()

		// clone this stream, it is already at the start of the current level
		r.skipStream[i] = r.skipStream[0].Clone()

		// move base stream beyond the current level
		if err = r.skipStream[0].Seek(r.skipStream[0].FilePointer() + length); err != nil {
			return err
		}
	}

	// use base stream for the lowest level
	r.skipPointer[0] = r.skipStream[0].FilePointer()
	return nil
}

func (r *MultiLevelSkipListReader) setLastSkipData(level int) {
	r.lastDoc = r.SkipDoc[level]
	r.lastChildPointer = r.childPointer[level]
	r.spi.SetLastSkipData(level)
}
