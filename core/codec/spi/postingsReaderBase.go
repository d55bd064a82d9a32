package spi

import (
	"io"

	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
)

// codecs/PostingsReaderBase.java

/*
The core terms dictionaries interact with a single instance of this
class to manage creation of PostingsEnum instances. It provides an
IndexInput (termsIn) where this class may read any previously stored
data that it had written in its corresponding PostingsWriterBase at
indexing time.
*/
type PostingsReaderBase interface {
	io.Closer
	// Performs any initialization, such as reading and verifying the
	// header from the provided terms dictionary IndexInput.
	Init(termsIn store.IndexInput, state *SegmentReadState) error
	// Return a newly created empty TermState
	NewTermState() *BlockTermState
	// Actually decode metadata for next term
	DecodeTerm(in util.DataInput, fieldInfo *model.FieldInfo, state *BlockTermState, absolute bool) error
	// Must fully consume state, since after this call that TermState
	// may be reused.
	Postings(fieldInfo *model.FieldInfo, state *BlockTermState, flags int) (model.PostingsEnum, error)
	// Checks consistency of this reader.
	CheckIntegrity() error
}
