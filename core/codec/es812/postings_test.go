package es812

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/ironsweet/esengine/core/codec/spi"
	"github.com/ironsweet/esengine/core/index/memory"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var common = []byte("common")

func randomPositions(rnd *rand.Rand, n int, payloads bool) []memory.Position {
	ans := make([]memory.Position, n)
	pos, offset := rnd.Intn(3), 0
	for i := range ans {
		pos += rnd.Intn(5)
		offset += rnd.Intn(4)
		ans[i] = memory.Position{
			Position:    pos,
			StartOffset: offset,
			EndOffset:   offset + rnd.Intn(8),
		}
		if payloads && rnd.Intn(3) != 0 {
			payload := make([]byte, 1+rnd.Intn(5))
			rnd.Read(payload)
			ans[i].Payload = payload
		}
	}
	return ans
}

/*
Builds four fields, one per index options level. Every doc holds the
"common" term in each field and a unique singleton term in "id";
about a quarter of the docs also hold "rare" in "body".
*/
func buildFields(rnd *rand.Rand, numDocs int) *memory.Fields {
	b := memory.NewBuilder()
	b.AddField("id", model.INDEX_OPT_DOCS_ONLY, false, true)
	b.AddField("freq", model.INDEX_OPT_DOCS_AND_FREQS, false, false)
	b.AddField("pos", model.INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS, false, true)
	b.AddField("body", model.INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS_AND_OFFSETS, true, false)

	doc := rnd.Intn(3)
	for i := 0; i < numDocs; i++ {
		b.AddDoc("id", common, doc, 1)
		b.AddDoc("id", []byte(fmt.Sprintf("%08d", doc)), doc, 1)
		b.AddDoc("freq", common, doc, 1+rnd.Intn(4))
		b.AddPositions("pos", common, doc, randomPositions(rnd, 1+rnd.Intn(4), false)...)
		b.AddPositions("body", common, doc, randomPositions(rnd, 1+rnd.Intn(6), true)...)
		if rnd.Intn(4) == 0 {
			b.AddPositions("body", []byte("rare"), doc, randomPositions(rnd, 1+rnd.Intn(300), true)...)
		}
		b.SetNorm("body", doc, 1+rnd.Int63n(300))
		doc += 1 + rnd.Intn(3)
	}
	return b.Finish()
}

func writeSegment(t *testing.T, dir store.Directory, fields *memory.Fields) *model.SegmentInfo {
	si := model.NewSegmentInfo(dir, "1.0", "_0", fields.MaxDoc(), FORMAT_NAME, model.NewSegmentID(), nil)
	state := spi.NewSegmentWriteState(nil, dir, si, fields.FieldInfos(), "", store.IO_CONTEXT_DEFAULT)
	consumer, err := NewPostingsFormat().FieldsConsumer(state)
	require.NoError(t, err)
	require.NoError(t, consumer.Write(fields, fields))
	require.NoError(t, consumer.Close())
	return si
}

func openSegment(t *testing.T, dir store.Directory, si *model.SegmentInfo, infos model.FieldInfos) *TermsReader {
	state := spi.NewSegmentReadState(dir, si, infos, store.IO_CONTEXT_READ, "")
	producer, err := NewPostingsFormat().FieldsProducer(state)
	require.NoError(t, err)
	return producer.(*TermsReader)
}

func assertSameDoc(t *testing.T, fi *model.FieldInfo, expected, actual model.PostingsEnum) {
	freq, err := actual.Freq()
	require.NoError(t, err)
	if !fi.IndexOptions().HasFreqs() {
		require.Equal(t, 1, freq)
		return
	}
	expectedFreq, err := expected.Freq()
	require.NoError(t, err)
	require.Equal(t, expectedFreq, freq, "doc=%v", actual.DocID())
	if !fi.IndexOptions().HasPositions() {
		return
	}
	for i := 0; i < freq; i++ {
		want, _ := expected.NextPosition()
		got, err := actual.NextPosition()
		require.NoError(t, err)
		require.Equal(t, want, got, "doc=%v, position #%v", actual.DocID(), i)

		start, err := actual.StartOffset()
		require.NoError(t, err)
		end, err := actual.EndOffset()
		require.NoError(t, err)
		if fi.IndexOptions().HasOffsets() {
			wantStart, _ := expected.StartOffset()
			wantEnd, _ := expected.EndOffset()
			require.Equal(t, wantStart, start)
			require.Equal(t, wantEnd, end)
		} else {
			require.Equal(t, -1, start)
			require.Equal(t, -1, end)
		}

		payload, err := actual.Payload()
		require.NoError(t, err)
		if fi.HasPayloads() {
			wantPayload, _ := expected.Payload()
			require.Equal(t, wantPayload, payload, "doc=%v, position #%v", actual.DocID(), i)
		} else {
			require.Nil(t, payload)
		}
	}
}

func assertSamePostings(t *testing.T, fi *model.FieldInfo, expected, actual model.PostingsEnum) {
	for {
		want, err := expected.NextDoc()
		require.NoError(t, err)
		got, err := actual.NextDoc()
		require.NoError(t, err)
		require.Equal(t, want, got)
		if got == model.NO_MORE_DOCS {
			return
		}
		assertSameDoc(t, fi, expected, actual)
	}
}

func assertSameTerms(t *testing.T, fi *model.FieldInfo, expected, actual spi.Terms) {
	require.Equal(t, expected.Size(), actual.Size())
	require.Equal(t, expected.DocCount(), actual.DocCount())
	require.Equal(t, expected.SumDocFreq(), actual.SumDocFreq())
	require.Equal(t, expected.SumTotalTermFreq(), actual.SumTotalTermFreq())

	want, err := expected.Iterator()
	require.NoError(t, err)
	got, err := actual.Iterator()
	require.NoError(t, err)
	for {
		term, err := want.Next()
		require.NoError(t, err)
		gotTerm, err := got.Next()
		require.NoError(t, err)
		require.Equal(t, term, gotTerm)
		if term == nil {
			return
		}
		df, _ := want.DocFreq()
		gotDF, err := got.DocFreq()
		require.NoError(t, err)
		require.Equal(t, df, gotDF, "term %s", term)
		ttf, _ := want.TotalTermFreq()
		gotTTF, err := got.TotalTermFreq()
		require.NoError(t, err)
		require.Equal(t, ttf, gotTTF, "term %s", term)

		expectedPostings, err := want.Postings(model.POSTINGS_FLAG_ALL)
		require.NoError(t, err)
		actualPostings, err := got.Postings(model.POSTINGS_FLAG_ALL)
		require.NoError(t, err)
		assert.Equal(t, int64(df), actualPostings.Cost())
		assertSamePostings(t, fi, expectedPostings, actualPostings)
	}
}

func TestPostingsRoundTrip(t *testing.T) {
	seed := time.Now().UnixNano()
	t.Logf("seed=%v", seed)
	rnd := rand.New(rand.NewSource(seed))

	for _, numDocs := range []int{0, 1, 127, 128, 129, 1317} {
		t.Run(fmt.Sprintf("docs=%v", numDocs), func(t *testing.T) {
			fields := buildFields(rnd, numDocs)
			dir := store.NewRAMDirectory()
			si := writeSegment(t, dir, fields)
			reader := openSegment(t, dir, si, fields.FieldInfos())
			defer reader.Close()
			require.NoError(t, reader.CheckIntegrity())

			require.Equal(t, fields.Names(), reader.Names())
			for _, name := range fields.Names() {
				expected, _ := fields.Terms(name)
				actual, err := reader.Terms(name)
				require.NoError(t, err)
				require.NotNil(t, actual)
				assertSameTerms(t, fields.FieldInfos().FieldInfoByName(name), expected, actual)
			}
			if numDocs == 0 {
				terms, err := reader.Terms("body")
				require.NoError(t, err)
				assert.Nil(t, terms)
			} else {
				idTerms, _ := reader.Terms("id")
				assert.Equal(t, int64(numDocs+1), idTerms.Size())
			}
		})
	}
}

// Postings requested with fewer features than were indexed.
func TestPostingsReducedFlags(t *testing.T) {
	rnd := rand.New(rand.NewSource(17))
	fields := buildFields(rnd, 700)
	dir := store.NewRAMDirectory()
	si := writeSegment(t, dir, fields)
	reader := openSegment(t, dir, si, fields.FieldInfos())
	defer reader.Close()

	for _, flags := range []int{model.POSTINGS_FLAG_NONE, model.POSTINGS_FLAG_FREQS, model.POSTINGS_FLAG_POSITIONS} {
		expected, err := reader.Postings("body", common, model.POSTINGS_FLAG_ALL)
		require.NoError(t, err)
		actual, err := reader.Postings("body", common, flags)
		require.NoError(t, err)
		for {
			doc, err := expected.NextDoc()
			require.NoError(t, err)
			got, err := actual.NextDoc()
			require.NoError(t, err)
			require.Equal(t, doc, got)
			if doc == model.NO_MORE_DOCS {
				break
			}
			if flags == model.POSTINGS_FLAG_NONE {
				continue
			}
			freq, _ := expected.Freq()
			gotFreq, err := actual.Freq()
			require.NoError(t, err)
			require.Equal(t, freq, gotFreq)
			if flags != model.POSTINGS_FLAG_POSITIONS {
				pos, err := actual.NextPosition()
				require.NoError(t, err)
				require.Equal(t, -1, pos)
				continue
			}
			for i := 0; i < freq; i++ {
				pos, _ := expected.NextPosition()
				gotPos, err := actual.NextPosition()
				require.NoError(t, err)
				require.Equal(t, pos, gotPos)
				offset, err := actual.StartOffset()
				require.NoError(t, err)
				require.Equal(t, -1, offset)
				payload, err := actual.Payload()
				require.NoError(t, err)
				require.Nil(t, payload)
			}
		}
	}
}

func expectedDocs(t *testing.T, fields *memory.Fields, field string, term []byte) []int {
	terms, err := fields.Terms(field)
	require.NoError(t, err)
	te, err := terms.Iterator()
	require.NoError(t, err)
	for {
		got, err := te.Next()
		require.NoError(t, err)
		require.NotNil(t, got, "term %s not found", term)
		if string(got) == string(term) {
			break
		}
	}
	postings, err := te.Postings(model.POSTINGS_FLAG_NONE)
	require.NoError(t, err)
	var docs []int
	for {
		doc, err := postings.NextDoc()
		require.NoError(t, err)
		if doc == model.NO_MORE_DOCS {
			return docs
		}
		docs = append(docs, doc)
	}
}

// Postings of fields positioned with a linear scan to the given doc.
func scanTo(t *testing.T, reader *TermsReader, field string, term []byte, target int) model.PostingsEnum {
	postings, err := reader.Postings(field, term, model.POSTINGS_FLAG_ALL)
	require.NoError(t, err)
	for {
		doc, err := postings.NextDoc()
		require.NoError(t, err)
		if doc >= target {
			return postings
		}
	}
}

func TestPostingsAdvance(t *testing.T) {
	seed := time.Now().UnixNano()
	t.Logf("seed=%v", seed)
	rnd := rand.New(rand.NewSource(seed))

	fields := buildFields(rnd, 5000)
	dir := store.NewRAMDirectory()
	si := writeSegment(t, dir, fields)
	reader := openSegment(t, dir, si, fields.FieldInfos())
	defer reader.Close()

	for _, field := range []string{"id", "freq", "pos", "body"} {
		fi := fields.FieldInfos().FieldInfoByName(field)
		for _, term := range [][]byte{common, []byte("rare")} {
			if field != "body" && string(term) == "rare" {
				continue
			}
			docs := expectedDocs(t, fields, field, term)
			last := docs[len(docs)-1]
			firstAtOrAfter := func(target int) int {
				if i := sort.SearchInts(docs, target); i < len(docs) {
					return docs[i]
				}
				return model.NO_MORE_DOCS
			}

			// single advance on a fresh enum
			for iter := 0; iter < 50; iter++ {
				target := rnd.Intn(last + 10)
				postings, err := reader.Postings(field, term, model.POSTINGS_FLAG_ALL)
				require.NoError(t, err)
				doc, err := postings.Advance(target)
				require.NoError(t, err)
				require.Equal(t, firstAtOrAfter(target), doc, "field=%v target=%v", field, target)
				if doc != model.NO_MORE_DOCS {
					assertSameDoc(t, fi, scanTo(t, reader, field, term, doc), postings)
				}
			}

			// increasing targets on one enum, mixed with NextDoc
			postings, err := reader.Postings(field, term, model.POSTINGS_FLAG_ALL)
			require.NoError(t, err)
			doc := -1
			for doc != model.NO_MORE_DOCS {
				var want int
				if rnd.Intn(3) == 0 {
					want = firstAtOrAfter(doc + 1)
					doc, err = postings.NextDoc()
				} else {
					target := doc + 1 + rnd.Intn(2*BLOCK_SIZE*(1+rnd.Intn(20)))
					want = firstAtOrAfter(target)
					doc, err = postings.Advance(target)
				}
				require.NoError(t, err)
				require.Equal(t, want, doc, "field=%v", field)
				if doc != model.NO_MORE_DOCS && rnd.Intn(2) == 0 {
					assertSameDoc(t, fi, scanTo(t, reader, field, term, doc), postings)
				}
			}
		}
	}
}

func TestSingletonTerms(t *testing.T) {
	b := memory.NewBuilder()
	b.AddField("id", model.INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS, false, true)
	docs := []int{3, 4, 5, 100, 7, 200000}
	for i, doc := range docs {
		b.AddPositions("id", []byte(fmt.Sprintf("id%02d", i)), doc,
			memory.Position{Position: i}, memory.Position{Position: i + 1})
	}
	fields := b.Finish()

	dir := store.NewRAMDirectory()
	si := writeSegment(t, dir, fields)
	reader := openSegment(t, dir, si, fields.FieldInfos())
	defer reader.Close()

	// singletons are pulsed into the terms dictionary
	docFileLength, err := dir.FileLength("_0.doc")
	require.NoError(t, err)
	empty := store.NewRAMDirectory()
	writeSegment(t, empty, memory.NewBuilder().Finish())
	emptyDocFile, err := empty.FileLength("_0.doc")
	require.NoError(t, err)
	assert.Equal(t, emptyDocFile, docFileLength)

	for i, doc := range docs {
		postings, err := reader.Postings("id", []byte(fmt.Sprintf("id%02d", i)), model.POSTINGS_FLAG_ALL)
		require.NoError(t, err)
		require.NotNil(t, postings)
		got, err := postings.NextDoc()
		require.NoError(t, err)
		assert.Equal(t, doc, got)
		freq, err := postings.Freq()
		require.NoError(t, err)
		assert.Equal(t, 2, freq)
		for j := 0; j < 2; j++ {
			pos, err := postings.NextPosition()
			require.NoError(t, err)
			assert.Equal(t, i+j, pos)
		}
		got, err = postings.NextDoc()
		require.NoError(t, err)
		assert.Equal(t, model.NO_MORE_DOCS, got)
	}

	postings, err := reader.Postings("id", []byte("missing"), model.POSTINGS_FLAG_NONE)
	require.NoError(t, err)
	assert.Nil(t, postings)
	postings, err = reader.Postings("nofield", []byte("id00"), model.POSTINGS_FLAG_NONE)
	require.NoError(t, err)
	assert.Nil(t, postings)
}

func TestCheckIntegrityDetectsCorruption(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	fields := buildFields(rnd, 300)
	dir := store.NewRAMDirectory()
	si := writeSegment(t, dir, fields)

	// flip one byte in the middle of the positions file
	in, err := dir.OpenInput("_0.pos", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	data := make([]byte, in.Length())
	require.NoError(t, in.ReadBytes(data))
	require.NoError(t, in.Close())
	data[len(data)/2] ^= 0xff
	require.NoError(t, dir.DeleteFile("_0.pos"))
	out, err := dir.CreateOutput("_0.pos", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, out.WriteBytes(data))
	require.NoError(t, out.Close())

	reader := openSegment(t, dir, si, fields.FieldInfos())
	defer reader.Close()
	assert.Error(t, reader.CheckIntegrity())
}

func TestOpenWithWrongSegmentID(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	fields := buildFields(rnd, 10)
	dir := store.NewRAMDirectory()
	writeSegment(t, dir, fields)

	other := model.NewSegmentInfo(dir, "1.0", "_0", fields.MaxDoc(), FORMAT_NAME, model.NewSegmentID(), nil)
	state := spi.NewSegmentReadState(dir, other, fields.FieldInfos(), store.IO_CONTEXT_READ, "")
	_, err := NewPostingsFormat().FieldsProducer(state)
	require.Error(t, err)
}

func TestFieldInfosRoundTrip(t *testing.T) {
	b := model.NewFieldInfosBuilder()
	b.AddOrUpdate("id", model.INDEX_OPT_DOCS_ONLY, false, true)
	body := b.AddOrUpdate("body", model.INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS_AND_OFFSETS, true, false)
	body.PutAttribute("es812.mode", "test")
	infos := b.Finish()

	dir := store.NewRAMDirectory()
	si := model.NewSegmentInfo(dir, "1.0", "_3", 10, FORMAT_NAME, model.NewSegmentID(), nil)
	require.NoError(t, WriteFieldInfos(dir, si, "", infos, store.IO_CONTEXT_DEFAULT))

	read, err := ReadFieldInfos(dir, si, "", store.IO_CONTEXT_READONCE)
	require.NoError(t, err)
	require.Equal(t, infos.Size(), read.Size())
	for _, fi := range infos.Values {
		got := read.FieldInfoByName(fi.Name)
		require.NotNil(t, got)
		assert.Equal(t, fi.Number, got.Number)
		assert.Equal(t, fi.IndexOptions(), got.IndexOptions())
		assert.Equal(t, fi.HasPayloads(), got.HasPayloads())
		assert.Equal(t, fi.OmitsNorms(), got.OmitsNorms())
	}
	assert.Equal(t, "test", read.FieldInfoByName("body").Attribute("es812.mode"))
	assert.Equal(t, infos.HasOffsets, read.HasOffsets)
}
