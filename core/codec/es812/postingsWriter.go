package es812

import (
	"github.com/ironsweet/esengine/core/codec"
	"github.com/ironsweet/esengine/core/codec/spi"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
)

// index/codec/postings/ES812PostingsWriter.java

/*
Concrete class that writes docId (maybe frq,pos,offset,payloads) list
with postings format.

Postings list for each term will be stored separately.
*/
type PostingsWriter struct {
	*spi.PushPostingsWriterBase

	docOut store.IndexOutput
	posOut store.IndexOutput
	payOut store.IndexOutput

	lastState *IntBlockTermState

	// Holds starting file pointers for current term:
	docStartFP int64
	posStartFP int64
	payStartFP int64

	docDeltaBuffer []int64
	freqBuffer     []int64
	docBufferUpto  int

	posDeltaBuffer         []int64
	payloadLengthBuffer    []int64
	offsetStartDeltaBuffer []int64
	offsetLengthBuffer     []int64
	posBufferUpto          int

	payloadBytes    []byte
	payloadByteUpto int

	lastBlockDocID           int
	lastBlockPosFP           int64
	lastBlockPayFP           int64
	lastBlockPosBufferUpto   int
	lastBlockPayloadByteUpto int

	lastDocID       int
	lastPosition    int
	lastStartOffset int
	docCount        int

	pforUtil   BlockCodec
	skipWriter *SkipWriter

	fieldHasNorms bool
	norms         model.NumericDocValues
	// accumulator across the docs of the current block
	competitiveFreqNormAccumulator *codec.CompetitiveImpactAccumulator
}

var _ spi.PostingsWriterBase = (*PostingsWriter)(nil)

// Creates a postings writer
func NewPostingsWriter(state *spi.SegmentWriteState) (*PostingsWriter, error) {
	docOut, err := state.Directory.CreateOutput(state.FileName(DOC_EXTENSION), state.Context)
	if err != nil {
		return nil, err
	}

	w := &PostingsWriter{
		pforUtil:                       NewPForUtil(),
		competitiveFreqNormAccumulator: codec.NewCompetitiveImpactAccumulator(),
	}
	w.PushPostingsWriterBase = spi.NewPushPostingsWriterBase(w)
	if err = func() error {
		var posOut store.IndexOutput
		var payOut store.IndexOutput
		var success = false
		defer func() {
			if !success {
				util.CloseWhileSuppressingError(docOut, posOut, payOut)
			}
		}()

		id, suffix := state.SegmentInfo.ID(), state.SegmentSuffix
		err := codec.WriteIndexHeader(docOut, DOC_CODEC, VERSION_CURRENT, id, suffix)
		if err != nil {
			return err
		}
		if state.FieldInfos.HasProx {
			w.posDeltaBuffer = make([]int64, BLOCK_SIZE)
			if posOut, err = state.Directory.CreateOutput(state.FileName(POS_EXTENSION), state.Context); err != nil {
				return err
			}
			if err = codec.WriteIndexHeader(posOut, POS_CODEC, VERSION_CURRENT, id, suffix); err != nil {
				return err
			}

			if state.FieldInfos.HasPayloads {
				w.payloadBytes = make([]byte, 128)
				w.payloadLengthBuffer = make([]int64, BLOCK_SIZE)
			}

			if state.FieldInfos.HasOffsets {
				w.offsetStartDeltaBuffer = make([]int64, BLOCK_SIZE)
				w.offsetLengthBuffer = make([]int64, BLOCK_SIZE)
			}

			if state.FieldInfos.HasPayloads || state.FieldInfos.HasOffsets {
				if payOut, err = state.Directory.CreateOutput(state.FileName(PAY_EXTENSION), state.Context); err != nil {
					return err
				}
				if err = codec.WriteIndexHeader(payOut, PAY_CODEC, VERSION_CURRENT, id, suffix); err != nil {
					return err
				}
			}
		}
		w.docOut, w.posOut, w.payOut = docOut, posOut, payOut
		success = true
		return nil
	}(); err != nil {
		return nil, err
	}

	w.docDeltaBuffer = make([]int64, BLOCK_SIZE)
	w.freqBuffer = make([]int64, BLOCK_SIZE)

	// TODO: should we try skipping every 2/4 blocks...?
	w.skipWriter = NewSkipWriter(MAX_SKIP_LEVELS, BLOCK_SIZE,
		state.SegmentInfo.MaxDoc(), w.docOut, w.posOut, w.payOut)
	return w, nil
}

func (w *PostingsWriter) NewTermState() *spi.BlockTermState {
	return NewIntBlockTermState().BlockTermState
}

func (w *PostingsWriter) Init(termsOut store.IndexOutput, state *spi.SegmentWriteState) error {
	err := codec.WriteIndexHeader(termsOut, TERMS_CODEC, VERSION_CURRENT, state.SegmentInfo.ID(), state.SegmentSuffix)
	if err == nil {
		err = termsOut.WriteVInt(BLOCK_SIZE)
	}
	return err
}

func (w *PostingsWriter) SetField(fieldInfo *model.FieldInfo) {
	w.PushPostingsWriterBase.SetField(fieldInfo)
	w.skipWriter.SetField(w.WritePositions, w.WriteOffsets, w.WritePayloads)
	w.lastState = emptyState
	w.fieldHasNorms = fieldInfo.HasNorms()
}

func (w *PostingsWriter) StartTerm(norms model.NumericDocValues) error {
	w.docStartFP = w.docOut.FilePointer()
	if w.WritePositions {
		w.posStartFP = w.posOut.FilePointer()
		if w.WritePayloads || w.WriteOffsets {
			w.payStartFP = w.payOut.FilePointer()
		}
	}
	w.lastDocID = 0
	w.lastBlockDocID = -1
	w.skipWriter.ResetSkip()
	w.norms = norms
	w.competitiveFreqNormAccumulator.Clear()
	return nil
}

func (w *PostingsWriter) StartDoc(docID, termDocFreq int) error {
	// Have collected a block of docs, and get a new doc. Should write
	// skip data as well as postings list for current block.
	if w.lastBlockDocID != -1 && w.docBufferUpto == 0 {
		if err := w.skipWriter.BufferSkip(w.lastBlockDocID, w.competitiveFreqNormAccumulator,
			w.docCount, w.lastBlockPosFP, w.lastBlockPayFP, w.lastBlockPosBufferUpto,
			w.lastBlockPayloadByteUpto); err != nil {
			return err
		}
		w.competitiveFreqNormAccumulator.Clear()
	}

	docDelta := docID - w.lastDocID
	if docID < 0 || (w.docCount > 0 && docDelta <= 0) {
		return model.NewCorruptIndexError(w.docOut, "docs out of order (%v <= %v )", docID, w.lastDocID)
	}

	w.docDeltaBuffer[w.docBufferUpto] = int64(docDelta)
	if w.WriteFreqs {
		w.freqBuffer[w.docBufferUpto] = int64(termDocFreq)
	}
	w.docBufferUpto++
	w.docCount++

	if w.docBufferUpto == BLOCK_SIZE {
		if err := w.pforUtil.Encode(w.docDeltaBuffer, w.docOut); err != nil {
			return err
		}
		if w.WriteFreqs {
			if err := w.pforUtil.Encode(w.freqBuffer, w.docOut); err != nil {
				return err
			}
		}
		// NOTE: don't set docBufferUpto back to 0 here; FinishDoc will
		// do so (because it needs to see that the block was filled so it
		// can save skip data)
	}

	w.lastDocID = docID
	w.lastPosition = 0
	w.lastStartOffset = 0

	norm := int64(1)
	if w.fieldHasNorms && w.norms != nil {
		found, err := w.norms.AdvanceExact(docID)
		if err != nil {
			return err
		}
		if found {
			if norm, err = w.norms.LongValue(); err != nil {
				return err
			}
			assert2(norm != 0, "zero norm for doc %v", docID)
		}
	}
	freq := 1
	if w.WriteFreqs {
		freq = termDocFreq
	}
	w.competitiveFreqNormAccumulator.Add(freq, norm)
	return nil
}

// Add a new position & payload
func (w *PostingsWriter) AddPosition(position int, payload []byte, startOffset, endOffset int) error {
	if position > model.MAX_POSITION {
		return model.NewCorruptIndexError(w.docOut,
			"position=%v is too large (> MAX_POSITION=%v)", position, model.MAX_POSITION)
	}
	if position < 0 {
		return model.NewCorruptIndexError(w.docOut, "position=%v is < 0", position)
	}
	if w.WriteOffsets {
		if startOffset < w.lastStartOffset {
			return model.NewCorruptIndexError(w.docOut,
				"offsets out of order: startOffset=%v < previous startOffset=%v", startOffset, w.lastStartOffset)
		}
		if endOffset < startOffset {
			return model.NewCorruptIndexError(w.docOut,
				"endOffset=%v is before startOffset=%v", endOffset, startOffset)
		}
	}

	w.posDeltaBuffer[w.posBufferUpto] = int64(position - w.lastPosition)
	if w.WritePayloads {
		if len(payload) == 0 {
			// no payload
			w.payloadLengthBuffer[w.posBufferUpto] = 0
		} else {
			w.payloadLengthBuffer[w.posBufferUpto] = int64(len(payload))
			w.payloadBytes = util.GrowByteSlice(w.payloadBytes, w.payloadByteUpto+len(payload))
			copy(w.payloadBytes[w.payloadByteUpto:], payload)
			w.payloadByteUpto += len(payload)
		}
	}

	if w.WriteOffsets {
		w.offsetStartDeltaBuffer[w.posBufferUpto] = int64(startOffset - w.lastStartOffset)
		w.offsetLengthBuffer[w.posBufferUpto] = int64(endOffset - startOffset)
		w.lastStartOffset = startOffset
	}

	w.posBufferUpto++
	w.lastPosition = position
	if w.posBufferUpto == BLOCK_SIZE {
		if err := w.pforUtil.Encode(w.posDeltaBuffer, w.posOut); err != nil {
			return err
		}

		if w.WritePayloads {
			if err := w.pforUtil.Encode(w.payloadLengthBuffer, w.payOut); err != nil {
				return err
			}
			if err := w.payOut.WriteVInt(int32(w.payloadByteUpto)); err != nil {
				return err
			}
			if err := w.payOut.WriteBytes(w.payloadBytes[:w.payloadByteUpto]); err != nil {
				return err
			}
			w.payloadByteUpto = 0
		}
		if w.WriteOffsets {
			if err := w.pforUtil.Encode(w.offsetStartDeltaBuffer, w.payOut); err != nil {
				return err
			}
			if err := w.pforUtil.Encode(w.offsetLengthBuffer, w.payOut); err != nil {
				return err
			}
		}
		w.posBufferUpto = 0
	}
	return nil
}

func (w *PostingsWriter) FinishDoc() error {
	// since we don't know df for current term, we had to buffer those
	// skip data for each block, and when a new doc comes, write them
	// to skip file.
	if w.docBufferUpto == BLOCK_SIZE {
		w.lastBlockDocID = w.lastDocID
		if w.posOut != nil {
			if w.payOut != nil {
				w.lastBlockPayFP = w.payOut.FilePointer()
			}
			w.lastBlockPosFP = w.posOut.FilePointer()
			w.lastBlockPosBufferUpto = w.posBufferUpto
			w.lastBlockPayloadByteUpto = w.payloadByteUpto
		}
		w.docBufferUpto = 0
	}
	return nil
}

// Called when we are done adding docs to this term
func (w *PostingsWriter) FinishTerm(_state *spi.BlockTermState) error {
	state := asIntBlockTermState(_state)
	assertTrue(state.DocFreq > 0)

	// TODO: wasteful we are counting this (counting # docs for this term) in two places?
	assert2(state.DocFreq == w.docCount, "%v vs %v", state.DocFreq, w.docCount)

	// docFreq == 1, don't write the single docid/freq to a separate
	// file along with a pointer to it.
	singletonDocID := -1
	if state.DocFreq == 1 {
		// pulse the singleton docid into the term dictionary, freq is implicitly totalTermFreq
		singletonDocID = int(w.docDeltaBuffer[0])
	} else {
		// vInt encode the remaining doc deltas and freqs:
		for i := 0; i < w.docBufferUpto; i++ {
			docDelta := int32(w.docDeltaBuffer[i])
			freq := int32(w.freqBuffer[i])
			var err error
			switch {
			case !w.WriteFreqs:
				err = w.docOut.WriteVInt(docDelta)
			case freq == 1:
				err = w.docOut.WriteVInt(docDelta<<1 | 1)
			default:
				if err = w.docOut.WriteVInt(docDelta << 1); err == nil {
					err = w.docOut.WriteVInt(freq)
				}
			}
			if err != nil {
				return err
			}
		}
	}

	lastPosBlockOffset := int64(-1)
	if w.WritePositions {
		// totalTermFreq is just total number of positions (or payloads,
		// or offsets) associated with current term.
		assertTrue(state.TotalTermFreq != -1)
		if state.TotalTermFreq > BLOCK_SIZE {
			// record file offset for last pos in last block
			lastPosBlockOffset = w.posOut.FilePointer() - w.posStartFP
		}
		if w.posBufferUpto > 0 {
			if err := w.writePositionTail(); err != nil {
				return err
			}
		}
	}

	skipOffset := int64(-1)
	if w.docCount > BLOCK_SIZE {
		skipPointer, err := w.skipWriter.WriteSkip(w.docOut)
		if err != nil {
			return err
		}
		skipOffset = skipPointer - w.docStartFP
	}

	state.DocStartFP = w.docStartFP
	state.PosStartFP = w.posStartFP
	state.PayStartFP = w.payStartFP
	state.SingletonDocID = singletonDocID
	state.SkipOffset = skipOffset
	state.LastPosBlockOffset = lastPosBlockOffset
	w.docBufferUpto = 0
	w.posBufferUpto = 0
	w.lastDocID = 0
	w.docCount = 0
	return nil
}

// vInt encode the remaining positions/payloads/offsets. Payload and
// offset lengths are only written when they differ from the previous
// position's.
func (w *PostingsWriter) writePositionTail() error {
	lastPayloadLength := -1 // force first payload length to be written
	lastOffsetLength := -1  // force first offset length to be written
	payloadBytesReadUpto := 0
	for i := 0; i < w.posBufferUpto; i++ {
		posDelta := int32(w.posDeltaBuffer[i])
		if w.WritePayloads {
			payloadLength := int(w.payloadLengthBuffer[i])
			if payloadLength != lastPayloadLength {
				lastPayloadLength = payloadLength
				if err := w.posOut.WriteVInt(posDelta<<1 | 1); err != nil {
					return err
				}
				if err := w.posOut.WriteVInt(int32(payloadLength)); err != nil {
					return err
				}
			} else if err := w.posOut.WriteVInt(posDelta << 1); err != nil {
				return err
			}

			if payloadLength != 0 {
				end := payloadBytesReadUpto + payloadLength
				if err := w.posOut.WriteBytes(w.payloadBytes[payloadBytesReadUpto:end]); err != nil {
					return err
				}
				payloadBytesReadUpto = end
			}
		} else if err := w.posOut.WriteVInt(posDelta); err != nil {
			return err
		}

		if w.WriteOffsets {
			delta := int32(w.offsetStartDeltaBuffer[i])
			length := int(w.offsetLengthBuffer[i])
			if length == lastOffsetLength {
				if err := w.posOut.WriteVInt(delta << 1); err != nil {
					return err
				}
			} else {
				if err := w.posOut.WriteVInt(delta<<1 | 1); err != nil {
					return err
				}
				if err := w.posOut.WriteVInt(int32(length)); err != nil {
					return err
				}
				lastOffsetLength = length
			}
		}
	}

	if w.WritePayloads {
		assertTrue(payloadBytesReadUpto == w.payloadByteUpto)
		w.payloadByteUpto = 0
	}
	return nil
}

func (w *PostingsWriter) EncodeTerm(out util.DataOutput, fieldInfo *model.FieldInfo,
	_state *spi.BlockTermState, absolute bool) error {

	state := asIntBlockTermState(_state)
	if absolute {
		w.lastState = emptyState
	}
	assert2(w.lastState.DocStartFP <= state.DocStartFP, "%v > %v", w.lastState.DocStartFP, state.DocStartFP)

	if w.lastState.SingletonDocID != -1 && state.SingletonDocID != -1 &&
		state.DocStartFP == w.lastState.DocStartFP {
		// With runs of rare values such as ID fields, the increment of
		// pointers in the docs file is often 0. Furthermore some ID
		// schemes like auto-increment IDs or Flake IDs are monotonic,
		// so we encode the delta between consecutive doc IDs.
		delta := int64(state.SingletonDocID) - int64(w.lastState.SingletonDocID)
		if err := out.WriteVLong(util.ZigZagEncode(delta)<<1 | 1); err != nil {
			return err
		}
	} else {
		if err := out.WriteVLong((state.DocStartFP - w.lastState.DocStartFP) << 1); err != nil {
			return err
		}
		if state.SingletonDocID != -1 {
			if err := out.WriteVInt(int32(state.SingletonDocID)); err != nil {
				return err
			}
		}
	}

	if w.WritePositions {
		if err := out.WriteVLong(state.PosStartFP - w.lastState.PosStartFP); err != nil {
			return err
		}
		if w.WritePayloads || w.WriteOffsets {
			if err := out.WriteVLong(state.PayStartFP - w.lastState.PayStartFP); err != nil {
				return err
			}
		}
		if state.LastPosBlockOffset != -1 {
			if err := out.WriteVLong(state.LastPosBlockOffset); err != nil {
				return err
			}
		}
	}
	if state.SkipOffset != -1 {
		if err := out.WriteVLong(state.SkipOffset); err != nil {
			return err
		}
	}
	w.lastState = state
	return nil
}

func (w *PostingsWriter) Close() (err error) {
	defer func() {
		w.docOut, w.posOut, w.payOut = nil, nil, nil
	}()
	for _, out := range []store.IndexOutput{w.docOut, w.posOut, w.payOut} {
		if out == nil {
			continue
		}
		if err = codec.WriteFooter(out); err != nil {
			log.Debugf("Failed to write footer to %v: %v", out, err)
			return util.CloseWhileHandlingError(err, w.docOut, w.posOut, w.payOut)
		}
	}
	return util.Close(w.docOut, w.posOut, w.payOut)
}
