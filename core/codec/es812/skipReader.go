package es812

import (
	"github.com/ironsweet/esengine/core/codec"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
)

// index/codec/postings/ES812SkipReader.java

/*
Implements the skip list reader for block postings format that stores
positions and payloads.

Although this skipper uses MultiLevelSkipListReader as an interface,
its definition of skip position will be a little different.

For example, when skipInterval = blockSize = 3, df = 2*skipInterval = 6,

	0 1 2 3 4 5
	d d d d d d    (posting list)
	    ^     ^    (skip point in MultiLeveSkipWriter)
	      ^        (skip point in SkipWriter)

In this case, MultiLevelSkipListReader will use the last document as
a skip point, while SkipReader should assume no skip point will comes.

If we use the interface directly in SkipReader, it may silly try to
read another skip data after the only skip point is loaded.

To illustrate this, we can call skipTo(d[5]), since skip point d[3]
has smaller docId, and numSkipped+blockSize == df, the
MultiLevelSkipListReader will assume the skip list isn't exhausted
yet, and try to load a non-existed skip point.

Therefore, we'll trim df before passing it to the interface. see
trim(int).
*/
type SkipReader struct {
	*store.MultiLevelSkipListReader

	docPointer      []int64
	posPointer      []int64
	payPointer      []int64
	posBufferUpto   []int
	payloadByteUpto []int
	impactData      [][]byte

	lastPosPointer      int64
	lastPayPointer      int64
	lastPayloadByteUpto int
	lastDocPointer      int64
	lastPosBufferUpto   int
}

func NewSkipReader(skipStream store.IndexInput, maxSkipLevels int,
	hasPos, hasOffsets, hasPayloads bool) *SkipReader {

	r := &SkipReader{
		docPointer: make([]int64, maxSkipLevels),
		impactData: make([][]byte, maxSkipLevels),
	}
	r.MultiLevelSkipListReader = store.NewMultiLevelSkipListReader(r, skipStream, maxSkipLevels, BLOCK_SIZE, SKIP_MULTIPLIER)
	if hasPos {
		r.posPointer = make([]int64, maxSkipLevels)
		r.posBufferUpto = make([]int, maxSkipLevels)
		if hasPayloads {
			r.payloadByteUpto = make([]int, maxSkipLevels)
		}
		if hasOffsets || hasPayloads {
			r.payPointer = make([]int64, maxSkipLevels)
		}
	}
	return r
}

/*
Trim original docFreq to tell skipReader read proper number of skip
points.

Since our definition in SkipReader is a little different from
MultiLevelSkipListReader, when we trim the docFreq by 1, the last
skip point won't be loaded if the last block is full.
*/
func trim(df int) int {
	if df%BLOCK_SIZE == 0 {
		return df - 1
	}
	return df
}

func (r *SkipReader) Init(skipPointer, docBasePointer, posBasePointer, payBasePointer int64, df int) error {
	if err := r.MultiLevelSkipListReader.Init(skipPointer, trim(df)); err != nil {
		return err
	}
	r.lastDocPointer = docBasePointer
	r.lastPosPointer = posBasePointer
	r.lastPayPointer = payBasePointer
	r.lastPosBufferUpto = 0
	r.lastPayloadByteUpto = 0

	for i := range r.docPointer {
		r.docPointer[i] = docBasePointer
		r.impactData[i] = r.impactData[i][:0]
	}
	if r.posPointer != nil {
		for i := range r.posPointer {
			r.posPointer[i] = posBasePointer
		}
		for i := range r.payPointer {
			r.payPointer[i] = payBasePointer
		}
	} else {
		assertTrue(posBasePointer == 0)
	}
	return nil
}

// Returns the doc pointer of the doc to which the last call of
// SkipTo() has skipped.
func (r *SkipReader) DocPointer() int64 {
	return r.lastDocPointer
}

func (r *SkipReader) PosPointer() int64 {
	return r.lastPosPointer
}

func (r *SkipReader) PosBufferUpto() int {
	return r.lastPosBufferUpto
}

func (r *SkipReader) PayPointer() int64 {
	return r.lastPayPointer
}

func (r *SkipReader) PayloadByteUpto() int {
	return r.lastPayloadByteUpto
}

// Last doc of the block following the one skipped to.
func (r *SkipReader) NextSkipDoc() int {
	return r.SkipDoc[0]
}

func (r *SkipReader) SeekChild(level int) {
	r.docPointer[level] = r.lastDocPointer
	if r.posPointer != nil {
		r.posPointer[level] = r.lastPosPointer
		r.posBufferUpto[level] = r.lastPosBufferUpto
		if r.payloadByteUpto != nil {
			r.payloadByteUpto[level] = r.lastPayloadByteUpto
		}
		if r.payPointer != nil {
			r.payPointer[level] = r.lastPayPointer
		}
	}
}

func (r *SkipReader) SetLastSkipData(level int) {
	r.lastDocPointer = r.docPointer[level]
	if r.posPointer != nil {
		r.lastPosPointer = r.posPointer[level]
		r.lastPosBufferUpto = r.posBufferUpto[level]
		if r.payPointer != nil {
			r.lastPayPointer = r.payPointer[level]
		}
		if r.payloadByteUpto != nil {
			r.lastPayloadByteUpto = r.payloadByteUpto[level]
		}
	}
}

func (r *SkipReader) ReadSkipData(level int, skipStream store.IndexInput) (int, error) {
	delta, err := skipStream.ReadVInt()
	if err != nil {
		return 0, err
	}
	docDelta, err := skipStream.ReadVLong()
	if err != nil {
		return 0, err
	}
	r.docPointer[level] += docDelta

	if r.posPointer != nil {
		posDelta, err := skipStream.ReadVLong()
		if err != nil {
			return 0, err
		}
		r.posPointer[level] += posDelta
		upto, err := skipStream.ReadVInt()
		if err != nil {
			return 0, err
		}
		r.posBufferUpto[level] = int(upto)

		if r.payloadByteUpto != nil {
			if upto, err = skipStream.ReadVInt(); err != nil {
				return 0, err
			}
			r.payloadByteUpto[level] = int(upto)
		}

		if r.payPointer != nil {
			payDelta, err := skipStream.ReadVLong()
			if err != nil {
				return 0, err
			}
			r.payPointer[level] += payDelta
		}
	}
	if err = r.readImpacts(level, skipStream); err != nil {
		return 0, err
	}
	return int(delta), nil
}

func (r *SkipReader) readImpacts(level int, skipStream store.IndexInput) error {
	length, err := skipStream.ReadVInt()
	if err != nil {
		return err
	}
	data := r.impactData[level]
	if cap(data) < int(length) {
		data = make([]byte, util.Oversize(int(length), 1))
	}
	data = data[:length]
	if err = skipStream.ReadBytes(data); err != nil {
		return err
	}
	r.impactData[level] = data
	return nil
}

/*
Returns the competitive (freq, norm) pairs of the skip entry last read
on the given level, in increasing freq order. Nil before the first
entry of the level has been read.
*/
func (r *SkipReader) Impacts(level int) ([]codec.Impact, error) {
	if level >= len(r.impactData) || len(r.impactData[level]) == 0 {
		return nil, nil
	}
	return decodeImpacts(store.NewByteArrayDataInput(r.impactData[level]))
}

func decodeImpacts(in *store.ByteArrayDataInput) ([]codec.Impact, error) {
	var impacts []codec.Impact
	freq, norm := 0, int64(0)
	for !in.EOF() {
		freqDelta, err := in.ReadVInt()
		if err != nil {
			return nil, err
		}
		if freqDelta&1 != 0 {
			freq += 1 + int(uint32(freqDelta)>>1)
			normDelta, err := in.ReadZLong()
			if err != nil {
				return nil, err
			}
			norm += 1 + normDelta
		} else {
			freq += 1 + int(uint32(freqDelta)>>1)
			norm++
		}
		impacts = append(impacts, codec.Impact{Freq: freq, Norm: norm})
	}
	return impacts, nil
}
