package es812

import (
	"bytes"
	"sort"

	"github.com/ironsweet/esengine/core/codec"
	"github.com/ironsweet/esengine/core/codec/spi"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
)

// Reads the flat terms dictionary written by TermsWriter.
type TermsReader struct {
	// Open input to the terms dict file (_X.tmd)
	in store.IndexInput
	// Reads the terms dict entries, to gather state to produce
	// PostingsEnum on demand
	postingsReader spi.PostingsReaderBase
	fields         map[string]*fieldReader
	segment        string
}

var _ spi.FieldsProducer = (*TermsReader)(nil)

func NewTermsReader(state *spi.SegmentReadState, postingsReader spi.PostingsReaderBase) (r *TermsReader, err error) {
	r = &TermsReader{
		postingsReader: postingsReader,
		fields:         make(map[string]*fieldReader),
		segment:        state.SegmentInfo.Name,
	}
	if r.in, err = state.Dir.OpenInput(state.FileName(TERMS_EXTENSION), state.Context); err != nil {
		return nil, err
	}

	success := false
	defer func() {
		if !success {
			log.Debugf("Failed to initialize TermsReader: %v", err)
			// the postings reader is closed by the caller
			util.CloseWhileSuppressingError(r.in)
		}
	}()

	if _, err = codec.CheckIndexHeader(r.in, TERMS_DICT_CODEC, VERSION_START, VERSION_CURRENT,
		state.SegmentInfo.ID(), state.SegmentSuffix); err != nil {
		return nil, err
	}
	// Have PostingsReader init itself
	if err = postingsReader.Init(r.in, state); err != nil {
		return nil, err
	}
	// NOTE: data file is too costly to verify checksum against all the
	// bytes on open, but for now we at least verify proper structure
	// of the checksum footer.
	if _, err = codec.RetrieveChecksum(r.in); err != nil {
		return nil, err
	}

	// Read per-field details
	if err = r.in.Seek(r.in.Length() - codec.FOOTER_LENGTH - 8); err != nil {
		return nil, err
	}
	dirStart, err := r.in.ReadLong()
	if err != nil {
		return nil, err
	}
	if err = r.in.Seek(dirStart); err != nil {
		return nil, err
	}
	numFields, err := r.in.ReadVInt()
	if err != nil {
		return nil, err
	}
	if numFields < 0 {
		return nil, model.NewCorruptIndexError(r.in, "invalid numFields: %v", numFields)
	}
	maxDoc := state.SegmentInfo.MaxDoc()
	for i := int32(0); i < numFields; i++ {
		field, err := r.readField(state.FieldInfos, maxDoc)
		if err != nil {
			return nil, err
		}
		if _, ok := r.fields[field.fieldInfo.Name]; ok {
			return nil, model.NewCorruptIndexError(r.in, "duplicate field: %v", field.fieldInfo.Name)
		}
		r.fields[field.fieldInfo.Name] = field
	}
	success = true
	return r, nil
}

func (r *TermsReader) readField(fieldInfos model.FieldInfos, maxDoc int) (*fieldReader, error) {
	in := r.in
	field, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	fieldInfo := fieldInfos.FieldInfoByNumber(int(field))
	if fieldInfo == nil {
		return nil, model.NewCorruptIndexError(in, "invalid field number: %v", field)
	}
	fr := &fieldReader{parent: r, fieldInfo: fieldInfo}
	if fr.numTerms, err = in.ReadVLong(); err != nil {
		return nil, err
	}
	if fr.numTerms <= 0 {
		return nil, model.NewCorruptIndexError(in, "Illegal numTerms for field number: %v", field)
	}
	if fr.termsStartFP, err = in.ReadVLong(); err != nil {
		return nil, err
	}
	if fieldInfo.IndexOptions().HasFreqs() {
		if fr.sumTotalTermFreq, err = in.ReadVLong(); err != nil {
			return nil, err
		}
	}
	if fr.sumDocFreq, err = in.ReadVLong(); err != nil {
		return nil, err
	}
	if !fieldInfo.IndexOptions().HasFreqs() {
		fr.sumTotalTermFreq = fr.sumDocFreq
	}
	docCount, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	fr.docCount = int(docCount)
	if fr.docCount < 0 || fr.docCount > maxDoc {
		return nil, model.NewCorruptIndexError(in, "invalid docCount: %v maxDoc: %v", docCount, maxDoc)
	}
	if fr.sumDocFreq < int64(fr.docCount) {
		return nil, model.NewCorruptIndexError(in, "invalid sumDocFreq: %v docCount: %v", fr.sumDocFreq, docCount)
	}
	if fr.sumTotalTermFreq < fr.sumDocFreq {
		return nil, model.NewCorruptIndexError(in, "invalid sumTotalTermFreq: %v sumDocFreq: %v",
			fr.sumTotalTermFreq, fr.sumDocFreq)
	}
	return fr, nil
}

func (r *TermsReader) Names() []string {
	ans := make([]string, 0, len(r.fields))
	for name := range r.fields {
		ans = append(ans, name)
	}
	sort.Strings(ans)
	return ans
}

func (r *TermsReader) Terms(field string) (spi.Terms, error) {
	if fr, ok := r.fields[field]; ok {
		return fr, nil
	}
	return nil, nil
}

/*
Returns the postings of the given term, or nil if the field or term
does not exist.
*/
func (r *TermsReader) Postings(field string, term []byte, flags int) (model.PostingsEnum, error) {
	fr, ok := r.fields[field]
	if !ok {
		return nil, nil
	}
	te := fr.newTermsEnum()
	found, err := te.SeekExact(term)
	if err != nil || !found {
		return nil, err
	}
	return te.Postings(flags)
}

func (r *TermsReader) CheckIntegrity() error {
	// term dictionary
	if _, err := codec.ChecksumEntireFile(r.in); err != nil {
		return err
	}
	// postings
	return r.postingsReader.CheckIntegrity()
}

func (r *TermsReader) Close() error {
	return util.Close(r.in, r.postingsReader)
}

// Terms of one field
type fieldReader struct {
	parent           *TermsReader
	fieldInfo        *model.FieldInfo
	numTerms         int64
	termsStartFP     int64
	sumTotalTermFreq int64
	sumDocFreq       int64
	docCount         int
}

func (fr *fieldReader) Iterator() (spi.TermsEnum, error) {
	return fr.newTermsEnum(), nil
}

func (fr *fieldReader) newTermsEnum() *flatTermsEnum {
	return &flatTermsEnum{
		fr:    fr,
		state: fr.parent.postingsReader.NewTermState(),
	}
}

func (fr *fieldReader) Size() int64             { return fr.numTerms }
func (fr *fieldReader) DocCount() int           { return fr.docCount }
func (fr *fieldReader) SumDocFreq() int64       { return fr.sumDocFreq }
func (fr *fieldReader) SumTotalTermFreq() int64 { return fr.sumTotalTermFreq }

// Scans the terms of a field in order, decoding the metadata of each.
type flatTermsEnum struct {
	fr    *fieldReader
	in    store.IndexInput
	ord   int64
	term  []byte
	state *spi.BlockTermState
}

func (te *flatTermsEnum) Next() ([]byte, error) {
	if te.ord == te.fr.numTerms {
		te.term = nil
		return nil, nil
	}
	if te.in == nil {
		// lazy init
		te.in = te.fr.parent.in.Clone()
		if err := te.in.Seek(te.fr.termsStartFP); err != nil {
			return nil, err
		}
	}

	length, err := te.in.ReadVInt()
	if err != nil {
		return nil, err
	}
	te.term = make([]byte, length)
	if err = te.in.ReadBytes(te.term); err != nil {
		return nil, err
	}
	docFreq, err := te.in.ReadVInt()
	if err != nil {
		return nil, err
	}
	te.state.DocFreq = int(docFreq)
	te.state.TotalTermFreq = int64(docFreq)
	if te.fr.fieldInfo.IndexOptions().HasFreqs() {
		delta, err := te.in.ReadVLong()
		if err != nil {
			return nil, err
		}
		te.state.TotalTermFreq += delta
	}
	te.state.Ord = te.ord
	absolute := te.ord%ABSOLUTE_INTERVAL == 0
	if err = te.fr.parent.postingsReader.DecodeTerm(te.in, te.fr.fieldInfo, te.state, absolute); err != nil {
		return nil, err
	}
	te.ord++
	return te.term, nil
}

// Scans forward to the given term. Returns false if it does not exist.
func (te *flatTermsEnum) SeekExact(target []byte) (bool, error) {
	for {
		term, err := te.Next()
		if err != nil || term == nil {
			return false, err
		}
		switch c := bytes.Compare(term, target); {
		case c == 0:
			return true, nil
		case c > 0:
			return false, nil
		}
	}
}

func (te *flatTermsEnum) Term() []byte {
	return te.term
}

func (te *flatTermsEnum) DocFreq() (int, error) {
	return te.state.DocFreq, nil
}

func (te *flatTermsEnum) TotalTermFreq() (int64, error) {
	return te.state.TotalTermFreq, nil
}

func (te *flatTermsEnum) Postings(flags int) (model.PostingsEnum, error) {
	assert2(te.term != nil, "enum is not positioned")
	return te.fr.parent.postingsReader.Postings(te.fr.fieldInfo, te.state, flags)
}
