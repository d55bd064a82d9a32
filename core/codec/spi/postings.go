package spi

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/ironsweet/esengine/core/index/model"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("spi")

// codecs/PostingsFormat.java

/*
Encodes/decodes terms, postings, and proximity data.

Note, when extending this class, the name Name() may be written into
the index in certain configurations. In order for the segment to be
read, the name must resolve to your implemetation via LoadPostingsFormat().
Since Go doesn't have Java's SPI locate mechanism, this method use
manual mappings to resolve format names.

If you implement your own format, make sure that it is manually
included.
*/
type PostingsFormat interface {
	// Returns this posting format's name
	Name() string
	// Writes a new segment
	FieldsConsumer(state *SegmentWriteState) (FieldsConsumer, error)
	// Reads a segment. NOTE: by the time this call returns, it must
	// hold open any files it will need to use; else, those files may
	// be deleted.
	FieldsProducer(state *SegmentReadState) (FieldsProducer, error)
}

type PostingsFormatImpl struct {
	name string
}

func NewPostingsFormatImpl(name string) *PostingsFormatImpl {
	return &PostingsFormatImpl{name}
}

// Returns this posting format's name
func (pf *PostingsFormatImpl) Name() string {
	return pf.name
}

func (pf *PostingsFormatImpl) String() string {
	return fmt.Sprintf("PostingsFormat(name=%v)", pf.name)
}

var (
	postingsFormatsLock sync.RWMutex
	allPostingsFormats  = map[string]PostingsFormat{}
)

// workaround Lucene Java's SPI mechanism
func RegisterPostingsFormat(formats ...PostingsFormat) {
	postingsFormatsLock.Lock()
	defer postingsFormatsLock.Unlock()
	for _, format := range formats {
		log.Debugf("Found postings format: %v", format.Name())
		allPostingsFormats[format.Name()] = format
	}
}

/* looks up a format by name */
func LoadPostingsFormat(name string) (PostingsFormat, error) {
	postingsFormatsLock.RLock()
	defer postingsFormatsLock.RUnlock()
	if v, ok := allPostingsFormats[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("postings format '%v' not found, available: %v",
		name, availablePostingsFormats())
}

/* Returns a sorted list of all available format names. */
func AvailablePostingsFormats() []string {
	postingsFormatsLock.RLock()
	defer postingsFormatsLock.RUnlock()
	return availablePostingsFormats()
}

func availablePostingsFormats() []string {
	ans := make([]string, 0, len(allPostingsFormats))
	for name := range allPostingsFormats {
		ans = append(ans, name)
	}
	sort.Strings(ans)
	return ans
}

// codecs/FieldsConsumer.java

/*
Abstract API that consumes terms, doc, freq, prox, offset and
payloads postings. Concrete implementations of this actually do
"something" with the postings (write it into the index in a specific
format).
*/
type FieldsConsumer interface {
	io.Closer
	// Write all fields, terms and postings. This is the "pull" API,
	// allowing you to iterate more than once over the postings.
	Write(fields Fields, norms NormsProducer) error
}

// codecs/FieldsProducer.java

// Abstract API that produces terms, doc, freq, prox, offset and
// payloads postings.
type FieldsProducer interface {
	Fields
	io.Closer
	// Checks consistency of this reader.
	CheckIntegrity() error
}

// codecs/NormsProducer.java

type NormsProducer interface {
	// Returns NumericDocValues for this field, or nil if the field
	// has no norms.
	Norms(field *model.FieldInfo) (model.NumericDocValues, error)
}

// index/Fields.java

// Flex API for access to fields and terms
type Fields interface {
	// Returns the indexed field names, in sorted order.
	Names() []string
	// Get the Terms for this field. This will return nil if the field
	// does not exist.
	Terms(field string) (Terms, error)
}

// index/Terms.java

// Access to the terms in a specific field.
type Terms interface {
	// Returns an iterator that will step through all terms, in byte
	// order.
	Iterator() (TermsEnum, error)
	// Returns the number of terms for this field.
	Size() int64
	// Returns the number of documents that have at least one term for
	// this field.
	DocCount() int
	// Returns the sum of DocFreq() for all terms in this field.
	SumDocFreq() int64
	// Returns the sum of TotalTermFreq() for all terms in this field.
	SumTotalTermFreq() int64
}

// index/TermsEnum.java

// Iterator to seek or step through terms to obtain frequency
// information, or for the current term.
type TermsEnum interface {
	// Increments the enumeration to the next term and returns it, or
	// nil when the end of the enumeration has been reached.
	Next() ([]byte, error)
	// Returns current term. Do not call this when the enum is
	// unpositioned.
	Term() []byte
	// Returns the number of documents containing the current term.
	DocFreq() (int, error)
	// Returns the total number of occurrences of this term across all
	// documents (the sum of the freq() for each doc that has this
	// term). For fields without freqs this equals DocFreq().
	TotalTermFreq() (int64, error)
	// Get PostingsEnum for the current term, with control over
	// whether freqs, positions, offsets or payloads are required.
	Postings(flags int) (model.PostingsEnum, error)
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
