package es812

import (
	"fmt"
	"reflect"

	"github.com/ironsweet/esengine/core/codec/spi"
	"github.com/ironsweet/esengine/core/util"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("es812")

func init() {
	spi.RegisterPostingsFormat(NewPostingsFormat())
}

// index/codec/postings/ES812PostingsFormat.java

const (
	// Filename extension for document number, frequencies, and skip data.
	DOC_EXTENSION = "doc"
	// Filename extension for positions.
	POS_EXTENSION = "pos"
	// Filename extension for payloads and offsets.
	PAY_EXTENSION = "pay"
	// Filename extension for the flat terms dictionary.
	TERMS_EXTENSION = "tmd"
	// Filename extension for field infos.
	FIELD_INFOS_EXTENSION = "fnm"

	// Size of blocks.
	BLOCK_SIZE = 128

	/*
		Expert: the maximum number of skip levels. Smaller values result
		in slightly smaller indexes, but slower skipping in big posting
		lists.
	*/
	MAX_SKIP_LEVELS = 10

	// each level skips over SKIP_MULTIPLIER blocks of the level below
	SKIP_MULTIPLIER = 8

	TERMS_CODEC = "ES812PostingsWriterTerms"
	DOC_CODEC   = "ES812PostingsWriterDoc"
	POS_CODEC   = "ES812PostingsWriterPos"
	PAY_CODEC   = "ES812PostingsWriterPay"

	VERSION_START   = 0
	VERSION_CURRENT = 1

	FORMAT_NAME = "ES812"
)

/*
Block postings format: postings are encoded in blocks of BLOCK_SIZE
docs or positions, compressed with PForUtil, with the remainder of
each term encoded as VInts. Terms with a single doc are pulsed into
the terms dictionary.
*/
type PostingsFormat struct {
	*spi.PostingsFormatImpl
}

func NewPostingsFormat() *PostingsFormat {
	return &PostingsFormat{spi.NewPostingsFormatImpl(FORMAT_NAME)}
}

func (f *PostingsFormat) FieldsConsumer(state *spi.SegmentWriteState) (spi.FieldsConsumer, error) {
	postingsWriter, err := NewPostingsWriter(state)
	if err != nil {
		return nil, err
	}
	var success = false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(postingsWriter)
		}
	}()
	ret, err := NewTermsWriter(state, postingsWriter)
	if err != nil {
		return nil, err
	}
	success = true
	return ret, nil
}

func (f *PostingsFormat) FieldsProducer(state *spi.SegmentReadState) (spi.FieldsProducer, error) {
	postingsReader, err := NewPostingsReader(state)
	if err != nil {
		return nil, err
	}
	success := false
	defer func() {
		if !success {
			log.Debugf("Failed to load FieldsProducer for %v.", f.Name())
			util.CloseWhileSuppressingError(postingsReader)
		}
	}()

	fp, err := NewTermsReader(state, postingsReader)
	if err != nil {
		return nil, err
	}
	success = true
	return fp, nil
}

// Holds all state required for the postings reader to produce a
// PostingsEnum without re-seeking the terms dict.
type IntBlockTermState struct {
	*spi.BlockTermState
	// file pointer to the start of the doc ids enumeration, in .doc file
	DocStartFP int64
	// file pointer to the start of the positions enumeration, in .pos file
	PosStartFP int64
	// file pointer to the start of the payloads enumeration, in .pay file
	PayStartFP int64
	// file offset for the start of the skip list, relative to
	// DocStartFP, if there are more than BLOCK_SIZE docs; otherwise -1
	SkipOffset int64
	// file offset for the last position in the last block, if there
	// are more than BLOCK_SIZE positions; otherwise -1
	LastPosBlockOffset int64
	// docid when there is a single pulsed posting, otherwise -1.
	// freq is always implicitly totalTermFreq in this case.
	SingletonDocID int
}

var emptyState = NewIntBlockTermState()

func NewIntBlockTermState() *IntBlockTermState {
	ts := &IntBlockTermState{
		SkipOffset:         -1,
		LastPosBlockOffset: -1,
		SingletonDocID:     -1,
	}
	parent := spi.NewBlockTermState()
	ts.BlockTermState, parent.Self = parent, ts
	return ts
}

func asIntBlockTermState(state *spi.BlockTermState) *IntBlockTermState {
	ts, ok := state.Self.(*IntBlockTermState)
	assert2(ok, "unexpected term state: %v", reflect.TypeOf(state.Self))
	return ts
}

func (ts *IntBlockTermState) Clone() spi.TermState {
	clone := NewIntBlockTermState()
	clone.CopyFrom(ts)
	return clone
}

func (ts *IntBlockTermState) CopyFrom(other spi.TermState) {
	assertTrue(other != nil)
	if ots, ok := other.(*IntBlockTermState); ok {
		ts.BlockTermState.CopyFrom_(ots.BlockTermState)
		ts.DocStartFP = ots.DocStartFP
		ts.PosStartFP = ots.PosStartFP
		ts.PayStartFP = ots.PayStartFP
		ts.LastPosBlockOffset = ots.LastPosBlockOffset
		ts.SkipOffset = ots.SkipOffset
		ts.SingletonDocID = ots.SingletonDocID
	} else {
		panic(fmt.Sprintf("Can not copy from %v", reflect.TypeOf(other)))
	}
}

func (ts *IntBlockTermState) String() string {
	return fmt.Sprintf("%v docStartFP=%v posStartFP=%v payStartFP=%v lastPosBlockOffset=%v skipOffset=%v singletonDocID=%v",
		ts.BlockTermState, ts.DocStartFP, ts.PosStartFP, ts.PayStartFP, ts.LastPosBlockOffset, ts.SkipOffset, ts.SingletonDocID)
}

func assertTrue(ok bool) {
	if !ok {
		panic("assert fail")
	}
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}
