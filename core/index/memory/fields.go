package memory

import (
	"sort"

	"github.com/ironsweet/esengine/core/codec/spi"
	"github.com/ironsweet/esengine/core/index/model"
)

// index/FreqProxFields.java

// One occurrence of a term inside a document.
type Position struct {
	Position    int
	StartOffset int
	EndOffset   int
	Payload     []byte
}

// The occurrences of a term in one document. Freq is used for fields
// without positions; otherwise it is the number of positions.
type Posting struct {
	Doc       int
	Freq      int
	Positions []Position
}

type termPostings struct {
	term     []byte
	postings []*Posting
}

type fieldPostings struct {
	info  *model.FieldInfo
	terms map[string]*termPostings
	norms map[int]int64
}

/*
Buffers postings in memory, keyed by field and term, the way the
indexing chain holds them before a segment is flushed. Docs are kept
in the order they are added, so callers must add them in increasing
doc ID order for the result to be a valid segment.
*/
type Builder struct {
	infos  *model.FieldInfosBuilder
	fields map[string]*fieldPostings
	maxDoc int
}

func NewBuilder() *Builder {
	return &Builder{
		infos:  model.NewFieldInfosBuilder(),
		fields: make(map[string]*fieldPostings),
	}
}

// Declares a field, or upgrades its options.
func (b *Builder) AddField(name string, indexOptions model.IndexOptions,
	storePayloads, omitNorms bool) *model.FieldInfo {

	fi := b.infos.AddOrUpdate(name, indexOptions, storePayloads, omitNorms)
	if _, ok := b.fields[name]; !ok {
		b.fields[name] = &fieldPostings{
			info:  fi,
			terms: make(map[string]*termPostings),
			norms: make(map[int]int64),
		}
	}
	return fi
}

func (b *Builder) field(name string) *fieldPostings {
	fp, ok := b.fields[name]
	assert2(ok, "field %v was not declared", name)
	return fp
}

func (b *Builder) posting(field string, term []byte, doc int) *Posting {
	assert2(doc >= 0, "invalid doc: %v", doc)
	fp := b.field(field)
	tp, ok := fp.terms[string(term)]
	if !ok {
		tp = &termPostings{term: append([]byte(nil), term...)}
		fp.terms[string(term)] = tp
	}
	if doc >= b.maxDoc {
		b.maxDoc = doc + 1
	}
	if n := len(tp.postings); n > 0 && tp.postings[n-1].Doc == doc {
		return tp.postings[n-1]
	}
	p := &Posting{Doc: doc}
	tp.postings = append(tp.postings, p)
	return p
}

// Records that doc contains term freq times. For fields without positions.
func (b *Builder) AddDoc(field string, term []byte, doc, freq int) {
	p := b.posting(field, term, doc)
	p.Freq += freq
}

// Records occurrences of term in doc.
func (b *Builder) AddPositions(field string, term []byte, doc int, positions ...Position) {
	p := b.posting(field, term, doc)
	p.Positions = append(p.Positions, positions...)
	p.Freq += len(positions)
}

// Sets the length normalization value of a field in a document.
func (b *Builder) SetNorm(field string, doc int, norm int64) {
	b.field(field).norms[doc] = norm
	if doc >= b.maxDoc {
		b.maxDoc = doc + 1
	}
}

// Forces the segment size, for segments whose last docs have no postings.
func (b *Builder) SetMaxDoc(maxDoc int) {
	assert2(maxDoc >= b.maxDoc, "maxDoc %v is below the highest doc %v", maxDoc, b.maxDoc-1)
	b.maxDoc = maxDoc
}

// Freezes the buffered postings.
func (b *Builder) Finish() *Fields {
	ans := &Fields{
		infos:  b.infos.Finish(),
		fields: make(map[string]*fieldTerms),
		maxDoc: b.maxDoc,
	}
	for name, fp := range b.fields {
		if len(fp.terms) == 0 {
			continue
		}
		ft := &fieldTerms{info: fp.info, norms: fp.norms}
		for _, tp := range fp.terms {
			ft.terms = append(ft.terms, tp)
		}
		sort.Slice(ft.terms, func(i, j int) bool {
			return string(ft.terms[i].term) < string(ft.terms[j].term)
		})
		ans.fields[name] = ft
	}
	return ans
}

/*
Frozen in-memory postings. Implements spi.Fields for the terms
dictionary writer, and spi.NormsProducer for the norms it collected.
*/
type Fields struct {
	infos  model.FieldInfos
	fields map[string]*fieldTerms
	maxDoc int
}

var (
	_ spi.Fields        = (*Fields)(nil)
	_ spi.NormsProducer = (*Fields)(nil)
)

func (f *Fields) FieldInfos() model.FieldInfos { return f.infos }

// Returns one plus the highest doc that was added.
func (f *Fields) MaxDoc() int { return f.maxDoc }

func (f *Fields) Names() []string {
	ans := make([]string, 0, len(f.fields))
	for name := range f.fields {
		ans = append(ans, name)
	}
	sort.Strings(ans)
	return ans
}

func (f *Fields) Terms(field string) (spi.Terms, error) {
	if ft, ok := f.fields[field]; ok {
		return ft, nil
	}
	return nil, nil
}

func (f *Fields) Norms(fi *model.FieldInfo) (model.NumericDocValues, error) {
	ft, ok := f.fields[fi.Name]
	if !ok || len(ft.norms) == 0 {
		return nil, nil
	}
	values := make([]int64, f.maxDoc)
	for doc, norm := range ft.norms {
		values[doc] = norm
	}
	return model.NewSliceNumericDocValues(values), nil
}

type fieldTerms struct {
	info  *model.FieldInfo
	terms []*termPostings
	norms map[int]int64
}

func (ft *fieldTerms) Iterator() (spi.TermsEnum, error) {
	return &termsEnum{terms: ft, ord: -1}, nil
}

func (ft *fieldTerms) Size() int64 { return int64(len(ft.terms)) }

func (ft *fieldTerms) DocCount() int {
	docs := make(map[int]bool)
	for _, tp := range ft.terms {
		for _, p := range tp.postings {
			docs[p.Doc] = true
		}
	}
	return len(docs)
}

func (ft *fieldTerms) SumDocFreq() (sum int64) {
	for _, tp := range ft.terms {
		sum += int64(len(tp.postings))
	}
	return
}

func (ft *fieldTerms) SumTotalTermFreq() (sum int64) {
	if !ft.info.IndexOptions().HasFreqs() {
		return ft.SumDocFreq()
	}
	for _, tp := range ft.terms {
		for _, p := range tp.postings {
			sum += int64(p.Freq)
		}
	}
	return
}

type termsEnum struct {
	terms *fieldTerms
	ord   int
}

func (te *termsEnum) Next() ([]byte, error) {
	if te.ord+1 >= len(te.terms.terms) {
		te.ord = len(te.terms.terms)
		return nil, nil
	}
	te.ord++
	return te.terms.terms[te.ord].term, nil
}

func (te *termsEnum) current() *termPostings {
	assert2(te.ord >= 0 && te.ord < len(te.terms.terms), "enum is not positioned")
	return te.terms.terms[te.ord]
}

func (te *termsEnum) Term() []byte { return te.current().term }

func (te *termsEnum) DocFreq() (int, error) { return len(te.current().postings), nil }

func (te *termsEnum) TotalTermFreq() (sum int64, err error) {
	if !te.terms.info.IndexOptions().HasFreqs() {
		return int64(len(te.current().postings)), nil
	}
	for _, p := range te.current().postings {
		sum += int64(p.Freq)
	}
	return
}

func (te *termsEnum) Postings(flags int) (model.PostingsEnum, error) {
	return &postingsEnum{postings: te.current().postings, upto: -1, doc: -1}, nil
}

type postingsEnum struct {
	postings []*Posting
	upto     int
	doc      int
	posUpto  int
}

func (e *postingsEnum) DocID() int { return e.doc }

func (e *postingsEnum) NextDoc() (int, error) {
	if e.upto+1 >= len(e.postings) {
		e.upto = len(e.postings)
		e.doc = model.NO_MORE_DOCS
		return e.doc, nil
	}
	e.upto++
	e.posUpto = -1
	e.doc = e.postings[e.upto].Doc
	return e.doc, nil
}

func (e *postingsEnum) Advance(target int) (int, error) {
	for {
		doc, err := e.NextDoc()
		if err != nil || doc >= target {
			return doc, err
		}
	}
}

func (e *postingsEnum) Cost() int64 { return int64(len(e.postings)) }

func (e *postingsEnum) Freq() (int, error) {
	if p := e.postings[e.upto]; p.Freq > 0 {
		return p.Freq, nil
	}
	return 1, nil
}

func (e *postingsEnum) position() *Position {
	p := e.postings[e.upto]
	if e.posUpto < 0 || e.posUpto >= len(p.Positions) {
		return nil
	}
	return &p.Positions[e.posUpto]
}

func (e *postingsEnum) NextPosition() (int, error) {
	e.posUpto++
	if pos := e.position(); pos != nil {
		return pos.Position, nil
	}
	return -1, nil
}

func (e *postingsEnum) StartOffset() (int, error) {
	if pos := e.position(); pos != nil {
		return pos.StartOffset, nil
	}
	return -1, nil
}

func (e *postingsEnum) EndOffset() (int, error) {
	if pos := e.position(); pos != nil {
		return pos.EndOffset, nil
	}
	return -1, nil
}

func (e *postingsEnum) Payload() ([]byte, error) {
	if pos := e.position(); pos != nil && len(pos.Payload) > 0 {
		return pos.Payload, nil
	}
	return nil, nil
}
