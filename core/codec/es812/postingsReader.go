package es812

import (
	"github.com/ironsweet/esengine/core/codec"
	"github.com/ironsweet/esengine/core/codec/spi"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
)

// index/codec/postings/ES812PostingsReader.java

/*
Concrete class that reads docId (maybe frq,pos,offset,payload) list
with postings format.
*/
type PostingsReader struct {
	docIn   store.IndexInput
	posIn   store.IndexInput
	payIn   store.IndexInput
	version int32
}

var _ spi.PostingsReaderBase = (*PostingsReader)(nil)

func NewPostingsReader(state *spi.SegmentReadState) (r *PostingsReader, err error) {
	success := false
	var docIn, posIn, payIn store.IndexInput
	defer func() {
		if !success {
			log.Debugf("Failed to initialize PostingsReader: %v", err)
			util.CloseWhileSuppressingError(docIn, posIn, payIn)
		}
	}()

	id, suffix := state.SegmentInfo.ID(), state.SegmentSuffix
	if docIn, err = state.Dir.OpenInput(state.FileName(DOC_EXTENSION), state.Context); err != nil {
		return nil, err
	}
	version, err := codec.CheckIndexHeader(docIn, DOC_CODEC, VERSION_START, VERSION_CURRENT, id, suffix)
	if err != nil {
		return nil, err
	}
	// NOTE: data file is too costly to verify checksum against all the
	// bytes on open, but for now we at least verify proper structure
	// of the checksum footer: which looks for FOOTER_MAGIC +
	// algorithmID. This is cheap and can detect some forms of
	// corruption such as file truncation.
	if _, err = codec.RetrieveChecksum(docIn); err != nil {
		return nil, err
	}

	if state.FieldInfos.HasProx {
		if posIn, err = state.Dir.OpenInput(state.FileName(POS_EXTENSION), state.Context); err != nil {
			return nil, err
		}
		if _, err = codec.CheckIndexHeader(posIn, POS_CODEC, version, version, id, suffix); err != nil {
			return nil, err
		}
		if _, err = codec.RetrieveChecksum(posIn); err != nil {
			return nil, err
		}

		if state.FieldInfos.HasPayloads || state.FieldInfos.HasOffsets {
			if payIn, err = state.Dir.OpenInput(state.FileName(PAY_EXTENSION), state.Context); err != nil {
				return nil, err
			}
			if _, err = codec.CheckIndexHeader(payIn, PAY_CODEC, version, version, id, suffix); err != nil {
				return nil, err
			}
			if _, err = codec.RetrieveChecksum(payIn); err != nil {
				return nil, err
			}
		}
	}

	success = true
	return &PostingsReader{docIn, posIn, payIn, version}, nil
}

func (r *PostingsReader) Init(termsIn store.IndexInput, state *spi.SegmentReadState) error {
	// Make sure we are talking to the matching postings writer
	_, err := codec.CheckIndexHeader(termsIn, TERMS_CODEC, VERSION_START, VERSION_CURRENT,
		state.SegmentInfo.ID(), state.SegmentSuffix)
	if err != nil {
		return err
	}
	indexBlockSize, err := termsIn.ReadVInt()
	if err != nil {
		return err
	}
	if indexBlockSize != BLOCK_SIZE {
		return model.NewCorruptIndexError(termsIn,
			"index-time BLOCK_SIZE (%v) != read-time BLOCK_SIZE (%v)", indexBlockSize, BLOCK_SIZE)
	}
	return nil
}

// Read values that have been written using variable-length encoding
// instead of bit-packing.
func readVIntBlock(docIn util.DataInput, docBuffer, freqBuffer []int64, num int, indexHasFreq bool) error {
	for i := 0; i < num; i++ {
		code, err := docIn.ReadVInt()
		if err != nil {
			return err
		}
		if !indexHasFreq {
			docBuffer[i] = int64(code)
			continue
		}
		docBuffer[i] = int64(uint32(code) >> 1)
		if code&1 != 0 {
			freqBuffer[i] = 1
		} else {
			freq, err := docIn.ReadVInt()
			if err != nil {
				return err
			}
			freqBuffer[i] = int64(freq)
		}
	}
	return nil
}

func (r *PostingsReader) NewTermState() *spi.BlockTermState {
	return NewIntBlockTermState().BlockTermState
}

func (r *PostingsReader) Close() error {
	return util.Close(r.docIn, r.posIn, r.payIn)
}

func (r *PostingsReader) DecodeTerm(in util.DataInput, fieldInfo *model.FieldInfo,
	_termState *spi.BlockTermState, absolute bool) error {

	termState := asIntBlockTermState(_termState)
	options := fieldInfo.IndexOptions()
	fieldHasPositions := options.HasPositions()
	fieldHasOffsets := options.HasOffsets()
	fieldHasPayloads := fieldInfo.HasPayloads()

	if absolute {
		termState.DocStartFP = 0
		termState.PosStartFP = 0
		termState.PayStartFP = 0
	}

	l, err := in.ReadVLong()
	if err != nil {
		return err
	}
	if l&1 == 0 {
		termState.DocStartFP += int64(uint64(l) >> 1)
		if termState.DocFreq == 1 {
			singleton, err := in.ReadVInt()
			if err != nil {
				return err
			}
			termState.SingletonDocID = int(singleton)
		} else {
			termState.SingletonDocID = -1
		}
	} else {
		assertTrue(!absolute)
		assertTrue(termState.SingletonDocID != -1)
		termState.SingletonDocID += int(util.ZigZagDecode(int64(uint64(l) >> 1)))
	}

	if fieldHasPositions {
		delta, err := in.ReadVLong()
		if err != nil {
			return err
		}
		termState.PosStartFP += delta
		if fieldHasOffsets || fieldHasPayloads {
			if delta, err = in.ReadVLong(); err != nil {
				return err
			}
			termState.PayStartFP += delta
		}
		if termState.TotalTermFreq > BLOCK_SIZE {
			if termState.LastPosBlockOffset, err = in.ReadVLong(); err != nil {
				return err
			}
		} else {
			termState.LastPosBlockOffset = -1
		}
	}

	if termState.DocFreq > BLOCK_SIZE {
		if termState.SkipOffset, err = in.ReadVLong(); err != nil {
			return err
		}
	} else {
		termState.SkipOffset = -1
	}
	return nil
}

func (r *PostingsReader) Postings(fieldInfo *model.FieldInfo,
	termState *spi.BlockTermState, flags int) (model.PostingsEnum, error) {

	return newBlockPostingsEnum(r, fieldInfo).reset(asIntBlockTermState(termState), flags)
}

func (r *PostingsReader) CheckIntegrity() error {
	for _, in := range []store.IndexInput{r.docIn, r.posIn, r.payIn} {
		if in == nil {
			continue
		}
		if _, err := codec.ChecksumEntireFile(in); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostingsReader) String() string {
	return "ES812PostingsReader"
}

/*
Enumerates docs, and when requested and indexed, freqs, positions,
payloads and offsets of one term.
*/
type blockPostingsEnum struct {
	*PostingsReader

	pforUtil BlockCodec

	docDeltaBuffer         []int64
	freqBuffer             []int64
	posDeltaBuffer         []int64
	payloadLengthBuffer    []int64
	offsetStartDeltaBuffer []int64
	offsetLengthBuffer     []int64

	payloadBytes    []byte
	payloadByteUpto int
	payloadLength   int

	lastStartOffset int
	startOffset     int
	endOffset       int

	docBufferUpto int
	posBufferUpto int

	skipper *SkipReader
	skipped bool

	docIn store.IndexInput
	posIn store.IndexInput
	payIn store.IndexInput

	indexHasFreq     bool
	indexHasPos      bool
	indexHasOffsets  bool
	indexHasPayloads bool

	docFreq       int
	totalTermFreq int64
	docUpto       int
	doc           int
	accum         int
	freq          int
	position      int

	// how many positions "behind" we are; nextPosition must skip these
	// to "catch up"
	posPendingCount int

	// lazy seek for positions and payloads
	posPendingFP int64
	payPendingFP int64

	// Where this term's postings start in the .doc file:
	docTermStartFP int64
	// Where this term's postings start in the .pos file:
	posTermStartFP int64
	// Where this term's payloads/offsets start in the .pay file:
	payTermStartFP int64

	// File pointer where the last (vInt encoded) pos delta block is.
	// We need this to know whether to bulk decode vs vInt decode the
	// block:
	lastPosBlockFP int64

	// Where this term's skip data starts (after docTermStartFP) in the
	// .doc file (or -1 if there is no skip data for this term):
	skipOffset int64

	// docID for next skip point, we won't use skipper if target docID
	// is not larger than this
	nextSkipDoc int

	needsFreq      bool
	needsPositions bool
	needsOffsets   bool
	needsPayloads  bool
	singletonDocID int
}

func newBlockPostingsEnum(owner *PostingsReader, fieldInfo *model.FieldInfo) *blockPostingsEnum {
	options := fieldInfo.IndexOptions()
	e := &blockPostingsEnum{
		PostingsReader:   owner,
		pforUtil:         NewPForUtil(),
		docDeltaBuffer:   make([]int64, BLOCK_SIZE),
		freqBuffer:       make([]int64, BLOCK_SIZE),
		indexHasFreq:     options.HasFreqs(),
		indexHasPos:      options.HasPositions(),
		indexHasOffsets:  options.HasOffsets(),
		indexHasPayloads: fieldInfo.HasPayloads(),
	}
	if e.indexHasPos {
		e.posDeltaBuffer = make([]int64, BLOCK_SIZE)
	}
	if e.indexHasOffsets {
		e.offsetStartDeltaBuffer = make([]int64, BLOCK_SIZE)
		e.offsetLengthBuffer = make([]int64, BLOCK_SIZE)
	}
	if e.indexHasPayloads {
		e.payloadLengthBuffer = make([]int64, BLOCK_SIZE)
		e.payloadBytes = make([]byte, 128)
	}
	return e
}

func (e *blockPostingsEnum) reset(termState *IntBlockTermState, flags int) (*blockPostingsEnum, error) {
	e.docFreq = termState.DocFreq
	e.totalTermFreq = termState.TotalTermFreq
	if !e.indexHasFreq {
		e.totalTermFreq = int64(e.docFreq)
	}
	e.docTermStartFP = termState.DocStartFP
	e.posTermStartFP = termState.PosStartFP
	e.payTermStartFP = termState.PayStartFP
	e.skipOffset = termState.SkipOffset
	e.singletonDocID = termState.SingletonDocID
	if e.docFreq > 1 {
		if e.docIn == nil {
			// lazy init
			e.docIn = e.PostingsReader.docIn.Clone()
		}
		if err := e.docIn.Seek(e.docTermStartFP); err != nil {
			return nil, err
		}
	}

	e.needsFreq = model.FeatureRequested(flags, model.POSTINGS_FLAG_FREQS)
	e.needsPositions = e.indexHasPos && model.FeatureRequested(flags, model.POSTINGS_FLAG_POSITIONS)
	e.needsOffsets = e.needsPositions && e.indexHasOffsets && model.FeatureRequested(flags, model.POSTINGS_FLAG_OFFSETS)
	e.needsPayloads = e.needsPositions && e.indexHasPayloads && model.FeatureRequested(flags, model.POSTINGS_FLAG_PAYLOADS)

	if e.needsPositions {
		if e.posIn == nil {
			e.posIn = e.PostingsReader.posIn.Clone()
		}
		if e.payIn == nil && e.PostingsReader.payIn != nil {
			e.payIn = e.PostingsReader.payIn.Clone()
		}
		e.posPendingFP = e.posTermStartFP
		e.payPendingFP = e.payTermStartFP
		e.posPendingCount = 0
		switch {
		case termState.TotalTermFreq < BLOCK_SIZE:
			e.lastPosBlockFP = e.posTermStartFP
		case termState.TotalTermFreq == BLOCK_SIZE:
			e.lastPosBlockFP = -1
		default:
			e.lastPosBlockFP = e.posTermStartFP + termState.LastPosBlockOffset
		}
	}

	if !e.indexHasFreq || (!e.needsFreq && !e.needsPositions) {
		for i := range e.freqBuffer {
			e.freqBuffer[i] = 1
		}
	}
	e.doc = -1
	e.accum = 0
	e.docUpto = 0
	e.freq = 0
	e.position = 0
	e.payloadLength = 0
	e.startOffset, e.endOffset = -1, -1
	if e.docFreq > BLOCK_SIZE {
		// we won't skip if target is found in first block
		e.nextSkipDoc = BLOCK_SIZE - 1
	} else {
		// not enough docs for skipping
		e.nextSkipDoc = model.NO_MORE_DOCS
	}
	e.docBufferUpto = BLOCK_SIZE
	e.skipped = false
	return e, nil
}

func (e *blockPostingsEnum) DocID() int {
	return e.doc
}

func (e *blockPostingsEnum) Freq() (int, error) {
	return e.freq, nil
}

func (e *blockPostingsEnum) Cost() int64 {
	return int64(e.docFreq)
}

func (e *blockPostingsEnum) refillDocs() error {
	left := e.docFreq - e.docUpto
	assertTrue(left > 0)

	switch {
	case left >= BLOCK_SIZE:
		if err := e.pforUtil.Decode(e.docIn, e.docDeltaBuffer); err != nil {
			return err
		}
		if e.indexHasFreq {
			if e.needsFreq || e.needsPositions {
				if err := e.pforUtil.Decode(e.docIn, e.freqBuffer); err != nil {
					return err
				}
			} else if err := e.pforUtil.Skip(e.docIn); err != nil {
				return err
			}
		}
	case e.docFreq == 1:
		e.docDeltaBuffer[0] = int64(e.singletonDocID)
		e.freqBuffer[0] = e.totalTermFreq
	default:
		// Read vInts:
		if err := readVIntBlock(e.docIn, e.docDeltaBuffer, e.freqBuffer, left, e.indexHasFreq); err != nil {
			return err
		}
	}
	e.docBufferUpto = 0
	return nil
}

func (e *blockPostingsEnum) nextBuffered() {
	e.accum += int(e.docDeltaBuffer[e.docBufferUpto])
	e.freq = int(e.freqBuffer[e.docBufferUpto])
	e.posPendingCount += e.freq
	e.docBufferUpto++
	e.docUpto++
}

func (e *blockPostingsEnum) NextDoc() (int, error) {
	if e.docUpto == e.docFreq {
		e.doc = model.NO_MORE_DOCS
		return e.doc, nil
	}
	if e.docBufferUpto == BLOCK_SIZE {
		if err := e.refillDocs(); err != nil {
			return 0, err
		}
	}
	e.nextBuffered()
	e.doc = e.accum
	e.position = 0
	e.lastStartOffset = 0
	return e.doc, nil
}

func (e *blockPostingsEnum) Advance(target int) (int, error) {
	// current skip docID < docIDs generated from current buffer <= next
	// skip docID, we don't need to skip if target is buffered already
	if target > e.nextSkipDoc {
		if e.skipper == nil {
			// Lazy init: first time this enum has ever been used for skipping
			e.skipper = NewSkipReader(e.PostingsReader.docIn.Clone(), MAX_SKIP_LEVELS,
				e.indexHasPos, e.indexHasOffsets, e.indexHasPayloads)
		}

		if !e.skipped {
			assertTrue(e.skipOffset != -1)
			// This is the first time this enum has skipped since reset()
			// was called; load the skip data:
			if err := e.skipper.Init(e.docTermStartFP+e.skipOffset,
				e.docTermStartFP, e.posTermStartFP, e.payTermStartFP, e.docFreq); err != nil {
				return 0, err
			}
			e.skipped = true
		}

		skipped, err := e.skipper.SkipTo(target)
		if err != nil {
			return 0, err
		}
		// always plus one to fix the result, since skip position in
		// SkipReader is a little different from MultiLevelSkipListReader
		if newDocUpto := skipped + 1; newDocUpto > e.docUpto {
			// Skipper moved
			assert2(newDocUpto%BLOCK_SIZE == 0, "got %v", newDocUpto)
			e.docUpto = newDocUpto

			// Force to read next block
			e.docBufferUpto = BLOCK_SIZE
			e.accum = e.skipper.Doc()
			if err = e.docIn.Seek(e.skipper.DocPointer()); err != nil {
				return 0, err
			}
			if e.needsPositions {
				e.posPendingFP = e.skipper.PosPointer()
				e.payPendingFP = e.skipper.PayPointer()
				e.posPendingCount = e.skipper.PosBufferUpto()
				e.lastStartOffset = 0 // new document
				e.payloadByteUpto = e.skipper.PayloadByteUpto()
			}
		}
		e.nextSkipDoc = e.skipper.NextSkipDoc()
	}
	if e.docUpto == e.docFreq {
		e.doc = model.NO_MORE_DOCS
		return e.doc, nil
	}
	if e.docBufferUpto == BLOCK_SIZE {
		if err := e.refillDocs(); err != nil {
			return 0, err
		}
	}

	// Now scan.. this is an inlined/pared down version of NextDoc():
	for {
		e.nextBuffered()
		if e.accum >= target {
			break
		}
		if e.docUpto == e.docFreq {
			e.doc = model.NO_MORE_DOCS
			return e.doc, nil
		}
	}

	e.position = 0
	e.lastStartOffset = 0
	e.doc = e.accum
	return e.doc, nil
}

// Skips positions of the docs that were passed over without reading
// their positions.
func (e *blockPostingsEnum) skipPositions() error {
	toSkip := e.posPendingCount - e.freq
	leftInBlock := BLOCK_SIZE - e.posBufferUpto
	if toSkip < leftInBlock {
		end := e.posBufferUpto + toSkip
		for e.posBufferUpto < end {
			if e.indexHasPayloads {
				e.payloadByteUpto += int(e.payloadLengthBuffer[e.posBufferUpto])
			}
			e.posBufferUpto++
		}
	} else {
		toSkip -= leftInBlock
		for toSkip >= BLOCK_SIZE {
			assertTrue(e.posIn.FilePointer() != e.lastPosBlockFP)
			if err := e.pforUtil.Skip(e.posIn); err != nil {
				return err
			}
			if e.indexHasPayloads {
				// Skip payloadLength block:
				if err := e.pforUtil.Skip(e.payIn); err != nil {
					return err
				}
				// Skip payloadBytes block:
				numBytes, err := e.payIn.ReadVInt()
				if err != nil {
					return err
				}
				if err = e.payIn.Seek(e.payIn.FilePointer() + int64(numBytes)); err != nil {
					return err
				}
			}
			if e.indexHasOffsets {
				if err := e.pforUtil.Skip(e.payIn); err != nil {
					return err
				}
				if err := e.pforUtil.Skip(e.payIn); err != nil {
					return err
				}
			}
			toSkip -= BLOCK_SIZE
		}
		if err := e.refillPositions(); err != nil {
			return err
		}
		e.payloadByteUpto = 0
		e.posBufferUpto = 0
		for e.posBufferUpto < toSkip {
			if e.indexHasPayloads {
				e.payloadByteUpto += int(e.payloadLengthBuffer[e.posBufferUpto])
			}
			e.posBufferUpto++
		}
	}

	e.position = 0
	e.lastStartOffset = 0
	return nil
}

func (e *blockPostingsEnum) refillPositions() error {
	if e.posIn.FilePointer() == e.lastPosBlockFP {
		count := int(e.totalTermFreq % BLOCK_SIZE)
		payloadLength, offsetLength := 0, 0
		e.payloadByteUpto = 0
		for i := 0; i < count; i++ {
			code, err := e.posIn.ReadVInt()
			if err != nil {
				return err
			}
			if e.indexHasPayloads {
				if code&1 != 0 {
					n, err := e.posIn.ReadVInt()
					if err != nil {
						return err
					}
					payloadLength = int(n)
				}
				e.payloadLengthBuffer[i] = int64(payloadLength)
				e.posDeltaBuffer[i] = int64(uint32(code) >> 1)
				if payloadLength != 0 {
					end := e.payloadByteUpto + payloadLength
					e.payloadBytes = util.GrowByteSlice(e.payloadBytes, end)
					if err = e.posIn.ReadBytes(e.payloadBytes[e.payloadByteUpto:end]); err != nil {
						return err
					}
					e.payloadByteUpto = end
				}
			} else {
				e.posDeltaBuffer[i] = int64(code)
			}

			if e.indexHasOffsets {
				deltaCode, err := e.posIn.ReadVInt()
				if err != nil {
					return err
				}
				if deltaCode&1 != 0 {
					n, err := e.posIn.ReadVInt()
					if err != nil {
						return err
					}
					offsetLength = int(n)
				}
				e.offsetStartDeltaBuffer[i] = int64(uint32(deltaCode) >> 1)
				e.offsetLengthBuffer[i] = int64(offsetLength)
			}
		}
		e.payloadByteUpto = 0
		return nil
	}

	if err := e.pforUtil.Decode(e.posIn, e.posDeltaBuffer); err != nil {
		return err
	}
	if e.indexHasPayloads {
		if e.needsPayloads {
			if err := e.pforUtil.Decode(e.payIn, e.payloadLengthBuffer); err != nil {
				return err
			}
			numBytes, err := e.payIn.ReadVInt()
			if err != nil {
				return err
			}
			e.payloadBytes = util.GrowByteSlice(e.payloadBytes, int(numBytes))
			if err = e.payIn.ReadBytes(e.payloadBytes[:numBytes]); err != nil {
				return err
			}
		} else {
			// this works, because when writing a vint block we always
			// force the first length to be written
			if err := e.pforUtil.Skip(e.payIn); err != nil { // skip over lengths
				return err
			}
			numBytes, err := e.payIn.ReadVInt() // read length of payloadBytes
			if err != nil {
				return err
			}
			// skip over payloadBytes
			if err = e.payIn.Seek(e.payIn.FilePointer() + int64(numBytes)); err != nil {
				return err
			}
			// lengths are still needed to skip payload bytes
			for i := range e.payloadLengthBuffer {
				e.payloadLengthBuffer[i] = 0
			}
		}
		e.payloadByteUpto = 0
	}

	if e.indexHasOffsets {
		if e.needsOffsets {
			if err := e.pforUtil.Decode(e.payIn, e.offsetStartDeltaBuffer); err != nil {
				return err
			}
			if err := e.pforUtil.Decode(e.payIn, e.offsetLengthBuffer); err != nil {
				return err
			}
		} else {
			// this works, because when writing a vint block we always
			// force the first length to be written
			if err := e.pforUtil.Skip(e.payIn); err != nil { // skip over starts
				return err
			}
			if err := e.pforUtil.Skip(e.payIn); err != nil { // skip over lengths
				return err
			}
		}
	}
	return nil
}

func (e *blockPostingsEnum) NextPosition() (int, error) {
	if !e.needsPositions {
		return -1, nil
	}
	assertTrue(e.posPendingCount > 0)

	if e.posPendingFP != -1 {
		if err := e.posIn.Seek(e.posPendingFP); err != nil {
			return 0, err
		}
		e.posPendingFP = -1

		if e.payPendingFP != -1 && e.payIn != nil {
			if err := e.payIn.Seek(e.payPendingFP); err != nil {
				return 0, err
			}
			e.payPendingFP = -1
		}

		// Force buffer refill:
		e.posBufferUpto = BLOCK_SIZE
	}

	if e.posPendingCount > e.freq {
		if err := e.skipPositions(); err != nil {
			return 0, err
		}
		e.posPendingCount = e.freq
	}

	if e.posBufferUpto == BLOCK_SIZE {
		if err := e.refillPositions(); err != nil {
			return 0, err
		}
		e.posBufferUpto = 0
	}
	e.position += int(e.posDeltaBuffer[e.posBufferUpto])

	if e.indexHasPayloads {
		e.payloadLength = int(e.payloadLengthBuffer[e.posBufferUpto])
		e.payloadByteUpto += e.payloadLength
	}

	if e.indexHasOffsets {
		e.startOffset = e.lastStartOffset + int(e.offsetStartDeltaBuffer[e.posBufferUpto])
		e.endOffset = e.startOffset + int(e.offsetLengthBuffer[e.posBufferUpto])
		e.lastStartOffset = e.startOffset
	}

	e.posBufferUpto++
	e.posPendingCount--
	return e.position, nil
}

func (e *blockPostingsEnum) StartOffset() (int, error) {
	if !e.needsOffsets {
		return -1, nil
	}
	return e.startOffset, nil
}

func (e *blockPostingsEnum) EndOffset() (int, error) {
	if !e.needsOffsets {
		return -1, nil
	}
	return e.endOffset, nil
}

func (e *blockPostingsEnum) Payload() ([]byte, error) {
	if !e.needsPayloads || e.payloadLength == 0 {
		return nil, nil
	}
	return e.payloadBytes[e.payloadByteUpto-e.payloadLength : e.payloadByteUpto], nil
}
