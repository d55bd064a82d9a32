package spi

import (
	"io"

	"github.com/ironsweet/esengine/core/codec"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
)

// codecs/PostingsWriterBase.java

/*
Class that plugs into term dictionaries, such as the flat terms
writer, and handles writing postings.
*/
type PostingsWriterBase interface {
	io.Closer
	// Called once after startup, before any terms have been added.
	// Implementations typically write a header to the provided
	// termsOut.
	Init(termsOut store.IndexOutput, state *SegmentWriteState) error
	/*
		Write all postings for one term; use the provided TermsEnum to
		pull a PostingsEnum. This method should not re-position the
		TermsEnum! It is already positioned on the term that should be
		written. This method must set the bit in the provided
		FixedBitSet for every docID written. If no docs were written,
		this method should return nil, and the terms dict will skip the
		term.
	*/
	WriteTerm(term []byte, termsEnum TermsEnum, docsSeen *util.FixedBitSet,
		norms NormsProducer) (*BlockTermState, error)
	/*
		Encode metadata as a series of bytes. The terms dict passes
		absolute=true for the first term of a block, after which the
		writer may encode deltas against the previous term of the same
		field.
	*/
	EncodeTerm(out util.DataOutput, fieldInfo *model.FieldInfo, state *BlockTermState, absolute bool) error
	// Sets the current field for writing.
	SetField(fieldInfo *model.FieldInfo)
}

// codecs/PushPostingsWriterBase.java

type PushPostingsWriterBaseSPI interface {
	codec.PostingsConsumer
	// Return a newly created empty TermState
	NewTermState() *BlockTermState
	// Start a new term. Note that a matching call to FinishTerm() is
	// done, only if the term has at least one document.
	StartTerm(norms model.NumericDocValues) error
	// Finishes the current term. The provided BlockTermState contains
	// the term's summary statistics, and will holds metadata from
	// PostingsWriterBase after this method returns.
	FinishTerm(state *BlockTermState) error
}

/*
Extension of PostingsWriterBase, adding a push API for writing each
element of the postings. This API is somewhat analogous to an XML SAX
API, while PostingsWriterBase is more like an XML DOM API.
*/
type PushPostingsWriterBase struct {
	spi PushPostingsWriterBaseSPI

	// Fieldinfo for current field.
	FieldInfo *model.FieldInfo
	// IndexOptions of current field being written
	IndexOptions model.IndexOptions
	// True if the current field writes freqs.
	WriteFreqs bool
	// True if the current field writes positions.
	WritePositions bool
	// True if the current field writes payloads.
	WritePayloads bool
	// True if the current field writes offsets.
	WriteOffsets bool

	enumFlags int
}

func NewPushPostingsWriterBase(spi PushPostingsWriterBaseSPI) *PushPostingsWriterBase {
	return &PushPostingsWriterBase{spi: spi}
}

func (w *PushPostingsWriterBase) SetField(fieldInfo *model.FieldInfo) {
	w.FieldInfo = fieldInfo
	w.IndexOptions = fieldInfo.IndexOptions()

	w.WriteFreqs = w.IndexOptions.HasFreqs()
	w.WritePositions = w.IndexOptions.HasPositions()
	w.WriteOffsets = w.IndexOptions.HasOffsets()
	w.WritePayloads = fieldInfo.HasPayloads()

	switch {
	case !w.WriteFreqs:
		w.enumFlags = model.POSTINGS_FLAG_NONE
	case !w.WritePositions:
		w.enumFlags = model.POSTINGS_FLAG_FREQS
	case w.WriteOffsets && w.WritePayloads:
		w.enumFlags = model.POSTINGS_FLAG_ALL
	case w.WriteOffsets:
		w.enumFlags = model.POSTINGS_FLAG_OFFSETS
	case w.WritePayloads:
		w.enumFlags = model.POSTINGS_FLAG_PAYLOADS
	default:
		w.enumFlags = model.POSTINGS_FLAG_POSITIONS
	}
}

func (w *PushPostingsWriterBase) WriteTerm(term []byte, termsEnum TermsEnum,
	docsSeen *util.FixedBitSet, norms NormsProducer) (*BlockTermState, error) {

	var normValues model.NumericDocValues
	if w.FieldInfo.HasNorms() && norms != nil {
		var err error
		if normValues, err = norms.Norms(w.FieldInfo); err != nil {
			return nil, err
		}
	}
	if err := w.spi.StartTerm(normValues); err != nil {
		return nil, err
	}
	postings, err := termsEnum.Postings(w.enumFlags)
	if err != nil {
		return nil, err
	}
	assertTrue(postings != nil)

	docFreq := 0
	totalTermFreq := int64(0)
	for {
		docID, err := postings.NextDoc()
		if err != nil {
			return nil, err
		}
		if docID == model.NO_MORE_DOCS {
			break
		}
		docFreq++
		if docsSeen != nil {
			docsSeen.Set(docID)
		}
		freq := -1
		if w.WriteFreqs {
			if freq, err = postings.Freq(); err != nil {
				return nil, err
			}
			totalTermFreq += int64(freq)
		}
		if err = w.spi.StartDoc(docID, freq); err != nil {
			return nil, err
		}

		if w.WritePositions {
			for i := 0; i < freq; i++ {
				pos, err := postings.NextPosition()
				if err != nil {
					return nil, err
				}
				var payload []byte
				if w.WritePayloads {
					if payload, err = postings.Payload(); err != nil {
						return nil, err
					}
				}
				startOffset, endOffset := -1, -1
				if w.WriteOffsets {
					if startOffset, err = postings.StartOffset(); err != nil {
						return nil, err
					}
					if endOffset, err = postings.EndOffset(); err != nil {
						return nil, err
					}
				}
				if err = w.spi.AddPosition(pos, payload, startOffset, endOffset); err != nil {
					return nil, err
				}
			}
		}

		if err = w.spi.FinishDoc(); err != nil {
			return nil, err
		}
	}

	if docFreq == 0 {
		return nil, nil
	}
	state := w.spi.NewTermState()
	state.DocFreq = docFreq
	if w.WriteFreqs {
		state.TotalTermFreq = totalTermFreq
	} else {
		state.TotalTermFreq = int64(docFreq)
	}
	if err = w.spi.FinishTerm(state); err != nil {
		return nil, err
	}
	return state, nil
}
