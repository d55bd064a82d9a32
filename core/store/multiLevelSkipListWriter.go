package store

import (
	"github.com/ironsweet/esengine/core/util"
)

// codecs/MultiLevelSkipListWriter.java

type MultiLevelSkipListWriterSPI interface {
	WriteSkipData(level int, skipBuffer IndexOutput) error
}

/*
This abstract type writes skip lists with multiple levels.

Example for skipInterval = 3:

	                                                   c            (skip level 2)
	               c                 c                 c            (skip level 1)
	   x     x     x     x     x     x     x     x     x     x      (skip level 0)
	d d d d d d d d d d d d d d d d d d d d d d d d d d d d d d d d  (posting list)
	   3     6     9     12    15    18    21    24    27    30     (df)

	d - document
	x - skip data
	c - skip data with child pointer

Skip level i contains every skipInterval-th entry from skip level
i-1. Therefore the number of entries on level i is:
floor(df / ((skipInterval ^ (i + 1))).

Each skip entry on a level i>0 contains a pointer to the
corresponding skip entry in list i-1. This guarantees a logarithmic
amount of skips to find the target document.

While this type takes care of writing the different skip levels,
implementations must define the actual format of the skip data.

Note: this type lives in store rather than codec to avoid a cyclic
dependency (store<->codec).
*/
type MultiLevelSkipListWriter struct {
	spi MultiLevelSkipListWriterSPI
	// number levels in this skip list
	numberOfSkipLevels int
	// the skip interval in ths list with level=0
	skipInterval int
	// skipInterval used for level > 0
	skipMultiplier int
	// for every skip level a different buffer is used
	skipBuffer []*RAMOutputStream
}

/* Creates a MultiLevelSkipListWriter. */
func NewMultiLevelSkipListWriter(spi MultiLevelSkipListWriterSPI,
	skipInterval, skipMultiplier, maxSkipLevels, df int) *MultiLevelSkipListWriter {

	numberOfSkipLevels := 1
	// calculate the maximum number of skip levels for this document frequency
	if df > skipInterval {
		numberOfSkipLevels = 1 + util.Log(int64(df/skipInterval), skipMultiplier)
	}
	// make sure it does not exceed maxSkipLevels
	if numberOfSkipLevels > maxSkipLevels {
		numberOfSkipLevels = maxSkipLevels
	}
	return &MultiLevelSkipListWriter{
		spi:                spi,
		skipInterval:       skipInterval,
		skipMultiplier:     skipMultiplier,
		numberOfSkipLevels: numberOfSkipLevels,
	}
}

func (w *MultiLevelSkipListWriter) NumberOfSkipLevels() int {
	return w.numberOfSkipLevels
}

/* Allocates internal skip buffers. */
func (w *MultiLevelSkipListWriter) init() {
	w.skipBuffer = make([]*RAMOutputStream, w.numberOfSkipLevels)
	for i := range w.skipBuffer {
		w.skipBuffer[i] = NewRAMOutputStreamBuffer()
	}
}

/* Creates new buffers or empties the existing ones */
func (w *MultiLevelSkipListWriter) ResetSkip() {
	if w.skipBuffer == nil {
		w.init()
	} else {
		for _, v := range w.skipBuffer {
			v.Reset()
		}
	}
}

/*
Writes the current skip data to the buffers. The current document
frequency determines the max level is skip data is to be written to.
*/
func (w *MultiLevelSkipListWriter) BufferSkip(df int) error {
	assertTrue(df%w.skipInterval == 0)
	numLevels := 1
	df /= w.skipInterval

	// determine max level
	for (df%w.skipMultiplier) == 0 && numLevels < w.numberOfSkipLevels {
		numLevels++
		df /= w.skipMultiplier
	}

	childPointer := int64(0)

	for level := 0; level < numLevels; level++ {
		if err := w.spi.WriteSkipData(level, w.skipBuffer[level]); err != nil {
			return err
		}

		newChildPointer := w.skipBuffer[level].FilePointer()

		if level != 0 {
			// store child pointers for all levels except the lowest
			if err := w.skipBuffer[level].WriteVLong(childPointer); err != nil {
				return err
			}
		}

		// remember the childPointer for the next level
		childPointer = newChildPointer
	}
	return nil
}

/* Writes the buffered skip lists to the given output. */
func (w *MultiLevelSkipListWriter) WriteSkip(output IndexOutput) (int64, error) {
	skipPointer := output.FilePointer()
	if len(w.skipBuffer) == 0 {
		return skipPointer, nil
	}

	for level := w.numberOfSkipLevels - 1; level > 0; level-- {
		if length := w.skipBuffer[level].FilePointer(); length > 0 {
			if err := output.WriteVLong(length); err != nil {
				return 0, err
			}
			if err := w.skipBuffer[level].WriteTo(output); err != nil {
				return 0, err
			}
		}
	}
	return skipPointer, w.skipBuffer[0].WriteTo(output)
}
