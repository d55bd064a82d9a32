package model

import (
	"math"
)

// Maximum value of a position
const MAX_POSITION = math.MaxInt32 - 128

// search/DocIdSetIterator.java

// When returned by NextDoc(), Advance() and DocID() it means there are
// no more docs in the iterator.
const NO_MORE_DOCS = math.MaxInt32

type DocIdSetIterator interface {
	/*
		Returns the following:
		- -1 if NextDoc() or Advance() were not called yet.
		- NO_MORE_DOCS if the iterator has exhausted.
		- Otherwise it should return the doc ID it is currently on.
	*/
	DocID() int
	// Advances to the next document in the set and returns the doc it
	// is currently on, or NO_MORE_DOCS if there are no more docs.
	NextDoc() (int, error)
	/*
		Advances to the first beyond the current whose document number
		is greater than or equal to target, and returns the document
		number itself. Exhausts the iterator and returns NO_MORE_DOCS if
		target is greater than the highest document number in the set.
	*/
	Advance(target int) (int, error)
	// Returns the estimated cost of this iterator.
	Cost() int64
}

// index/PostingsEnum.java

const (
	// Flag to pass to TermsEnum.postings() if you don't require per-document postings
	POSTINGS_FLAG_NONE = 0
	// Flag to pass if you require term frequencies in the returned enum
	POSTINGS_FLAG_FREQS = 1 << 3
	// Flag to pass if you require term positions
	POSTINGS_FLAG_POSITIONS = POSTINGS_FLAG_FREQS | 1<<4
	// Flag to pass if you require offsets
	POSTINGS_FLAG_OFFSETS = POSTINGS_FLAG_POSITIONS | 1<<5
	// Flag to pass if you require payloads
	POSTINGS_FLAG_PAYLOADS = POSTINGS_FLAG_POSITIONS | 1<<6
	// Should be passed if you require offsets, payloads and positions
	POSTINGS_FLAG_ALL = POSTINGS_FLAG_OFFSETS | POSTINGS_FLAG_PAYLOADS
)

// Returns true if the given flags require positions.
func FeatureRequested(flags, feature int) bool {
	return (flags & feature) == feature
}

/*
Iterates through the postings. NOTE: you must first call NextDoc()
before using any of the per-doc methods.
*/
type PostingsEnum interface {
	DocIdSetIterator
	// Returns term frequency in the current document, or 1 if the
	// field was indexed with INDEX_OPT_DOCS_ONLY.
	Freq() (int, error)
	// Returns the next position, or -1 if positions were not indexed.
	// Calling this more than Freq() times is undefined.
	NextPosition() (int, error)
	// Returns start offset for the current position, or -1 if offsets
	// were not indexed.
	StartOffset() (int, error)
	// Returns end offset for the current position, or -1 if offsets
	// were not indexed.
	EndOffset() (int, error)
	// Returns the payload at this position, or nil if no payload was
	// indexed. The returned slice is only valid until the next call.
	Payload() ([]byte, error)
}
