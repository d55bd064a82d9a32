package es812

import (
	"github.com/ironsweet/esengine/core/codec"
	"github.com/ironsweet/esengine/core/store"
)

// index/codec/postings/ES812SkipWriter.java

/*
Write skip lists with multiple levels, and support skip within block
ints.

Assume that docFreq = 28, skipInterval = blockSize = 12

	|       block#0       | |      block#1        | |vInts|
	d d d d d d d d d d d d d d d d d d d d d d d d d d d d (posting list)
	                        ^                       ^       (level 0 skip point)

Note that skipWriter will ignore first document in block#0, since it
is useless as a skip point. Also, we'll never skip into the vInts
block, only record skip data at the start its start point(if it
exist).

For each skip point, we will record:
 1. docID in former position, i.e. for position 12, record docID[11], etc.
 2. its related file points(position, payload),
 3. related numbers or uptos(position, payload).
 4. start offset.
*/
type SkipWriter struct {
	*store.MultiLevelSkipListWriter

	lastSkipDoc         []int
	lastSkipDocPointer  []int64
	lastSkipPosPointer  []int64
	lastSkipPayPointer  []int64
	lastPayloadByteUpto []int

	docOut store.IndexOutput
	posOut store.IndexOutput
	payOut store.IndexOutput

	curDoc             int
	curDocPointer      int64
	curPosPointer      int64
	curPayPointer      int64
	curPosBufferUpto   int
	curPayloadByteUpto int

	curCompetitiveFreqNorms []*codec.CompetitiveImpactAccumulator

	fieldHasPositions bool
	fieldHasOffsets   bool
	fieldHasPayloads  bool

	// We only skip data for blocks (terms with more than BLOCK_SIZE
	// docs). Re-initializing the skipper for every rare term would fill
	// O(log #docs) of junk, so ResetSkip only saves the file pointers
	// and the buffers are set up on the first BufferSkip of the term.
	initialized bool
	lastDocFP   int64
	lastPosFP   int64
	lastPayFP   int64

	freqNormOut *store.RAMOutputStream
}

func NewSkipWriter(maxSkipLevels, blockSize, docCount int,
	docOut, posOut, payOut store.IndexOutput) *SkipWriter {

	w := &SkipWriter{
		docOut:                  docOut,
		posOut:                  posOut,
		payOut:                  payOut,
		lastSkipDoc:             make([]int, maxSkipLevels),
		lastSkipDocPointer:      make([]int64, maxSkipLevels),
		curCompetitiveFreqNorms: make([]*codec.CompetitiveImpactAccumulator, maxSkipLevels),
		freqNormOut:             store.NewRAMOutputStreamBuffer(),
	}
	w.MultiLevelSkipListWriter = store.NewMultiLevelSkipListWriter(w, blockSize, SKIP_MULTIPLIER, maxSkipLevels, docCount)
	if posOut != nil {
		w.lastSkipPosPointer = make([]int64, maxSkipLevels)
		if payOut != nil {
			w.lastSkipPayPointer = make([]int64, maxSkipLevels)
		}
		w.lastPayloadByteUpto = make([]int, maxSkipLevels)
	}
	for i := range w.curCompetitiveFreqNorms {
		w.curCompetitiveFreqNorms[i] = codec.NewCompetitiveImpactAccumulator()
	}
	return w
}

func (w *SkipWriter) SetField(fieldHasPositions, fieldHasOffsets, fieldHasPayloads bool) {
	w.fieldHasPositions = fieldHasPositions
	w.fieldHasOffsets = fieldHasOffsets
	w.fieldHasPayloads = fieldHasPayloads
}

func (w *SkipWriter) ResetSkip() {
	w.lastDocFP = w.docOut.FilePointer()
	if w.fieldHasPositions {
		w.lastPosFP = w.posOut.FilePointer()
		if w.fieldHasOffsets || w.fieldHasPayloads {
			w.lastPayFP = w.payOut.FilePointer()
		}
	}
	if w.initialized {
		for _, acc := range w.curCompetitiveFreqNorms {
			acc.Clear()
		}
	}
	w.initialized = false
}

func (w *SkipWriter) initSkip() {
	if w.initialized {
		return
	}
	w.MultiLevelSkipListWriter.ResetSkip()
	for i := range w.lastSkipDoc {
		w.lastSkipDoc[i] = 0
		w.lastSkipDocPointer[i] = w.lastDocFP
	}
	if w.fieldHasPositions {
		for i := range w.lastSkipPosPointer {
			w.lastSkipPosPointer[i] = w.lastPosFP
		}
		if w.fieldHasPayloads {
			for i := range w.lastPayloadByteUpto {
				w.lastPayloadByteUpto[i] = 0
			}
		}
		if w.fieldHasOffsets || w.fieldHasPayloads {
			for i := range w.lastSkipPayPointer {
				w.lastSkipPayPointer[i] = w.lastPayFP
			}
		}
	}
	// sets of competitive freq,norm pairs should be empty at this point
	w.initialized = true
}

/*
Sets the values for the current skip data. doc is the last doc of the
block just completed and numDocs the number of docs written so far
for the term.
*/
func (w *SkipWriter) BufferSkip(doc int, competitiveFreqNorms *codec.CompetitiveImpactAccumulator,
	numDocs int, posFP, payFP int64, posBufferUpto, payloadByteUpto int) error {

	w.initSkip()
	w.curDoc = doc
	w.curDocPointer = w.docOut.FilePointer()
	w.curPosPointer = posFP
	w.curPayPointer = payFP
	w.curPosBufferUpto = posBufferUpto
	w.curPayloadByteUpto = payloadByteUpto
	w.curCompetitiveFreqNorms[0].AddAll(competitiveFreqNorms)
	return w.MultiLevelSkipListWriter.BufferSkip(numDocs)
}

func (w *SkipWriter) WriteSkipData(level int, skipBuffer store.IndexOutput) error {
	delta := w.curDoc - w.lastSkipDoc[level]
	if err := skipBuffer.WriteVInt(int32(delta)); err != nil {
		return err
	}
	w.lastSkipDoc[level] = w.curDoc

	if err := skipBuffer.WriteVLong(w.curDocPointer - w.lastSkipDocPointer[level]); err != nil {
		return err
	}
	w.lastSkipDocPointer[level] = w.curDocPointer

	if w.fieldHasPositions {
		if err := skipBuffer.WriteVLong(w.curPosPointer - w.lastSkipPosPointer[level]); err != nil {
			return err
		}
		w.lastSkipPosPointer[level] = w.curPosPointer
		if err := skipBuffer.WriteVInt(int32(w.curPosBufferUpto)); err != nil {
			return err
		}
		if w.fieldHasPayloads {
			if err := skipBuffer.WriteVInt(int32(w.curPayloadByteUpto)); err != nil {
				return err
			}
		}
		if w.fieldHasOffsets || w.fieldHasPayloads {
			if err := skipBuffer.WriteVLong(w.curPayPointer - w.lastSkipPayPointer[level]); err != nil {
				return err
			}
			w.lastSkipPayPointer[level] = w.curPayPointer
		}
	}

	competitiveFreqNorms := w.curCompetitiveFreqNorms[level]
	assertTrue(len(competitiveFreqNorms.CompetitiveFreqNormPairs()) > 0)
	if level+1 < w.NumberOfSkipLevels() {
		w.curCompetitiveFreqNorms[level+1].AddAll(competitiveFreqNorms)
	}
	if err := writeImpacts(competitiveFreqNorms, w.freqNormOut); err != nil {
		return err
	}
	if err := skipBuffer.WriteVInt(int32(w.freqNormOut.FilePointer())); err != nil {
		return err
	}
	if err := w.freqNormOut.WriteTo(skipBuffer); err != nil {
		return err
	}
	w.freqNormOut.Reset()
	competitiveFreqNorms.Clear()
	return nil
}

// Impacts are written in increasing freq order, each as the delta to
// the previous one minus one; the norm delta is omitted when it is
// exactly one.
func writeImpacts(acc *codec.CompetitiveImpactAccumulator, out store.IndexOutput) error {
	previous := codec.Impact{}
	for _, impact := range acc.CompetitiveFreqNormPairs() {
		assertTrue(impact.Freq > previous.Freq)
		freqDelta := impact.Freq - previous.Freq - 1
		normDelta := impact.Norm - previous.Norm - 1
		if normDelta == 0 {
			if err := out.WriteVInt(int32(freqDelta << 1)); err != nil {
				return err
			}
		} else {
			if err := out.WriteVInt(int32(freqDelta<<1 | 1)); err != nil {
				return err
			}
			if err := out.WriteZLong(normDelta); err != nil {
				return err
			}
		}
		previous = impact
	}
	return nil
}
