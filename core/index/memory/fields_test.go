package memory

import (
	"testing"

	"github.com/ironsweet/esengine/core/index/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderFinish(t *testing.T) {
	b := NewBuilder()
	b.AddField("id", model.INDEX_OPT_DOCS_ONLY, false, true)
	b.AddField("body", model.INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS_AND_OFFSETS, true, false)
	b.AddField("empty", model.INDEX_OPT_DOCS_ONLY, false, true)

	b.AddDoc("id", []byte("b"), 0, 1)
	b.AddDoc("id", []byte("a"), 1, 1)
	b.AddPositions("body", []byte("quick"), 0,
		Position{Position: 0, StartOffset: 0, EndOffset: 5},
		Position{Position: 3, StartOffset: 16, EndOffset: 21, Payload: []byte("p")})
	b.AddPositions("body", []byte("quick"), 2, Position{Position: 1, StartOffset: 4, EndOffset: 9})
	b.SetNorm("body", 0, 7)
	b.SetNorm("body", 2, 3)
	fields := b.Finish()

	assert.Equal(t, 3, fields.MaxDoc())
	assert.Equal(t, []string{"body", "id"}, fields.Names())
	assert.Equal(t, 3, fields.FieldInfos().Size())

	terms, err := fields.Terms("missing")
	require.NoError(t, err)
	assert.Nil(t, terms)

	terms, err = fields.Terms("id")
	require.NoError(t, err)
	assert.Equal(t, int64(2), terms.Size())
	assert.Equal(t, 2, terms.DocCount())
	assert.Equal(t, int64(2), terms.SumDocFreq())
	assert.Equal(t, int64(2), terms.SumTotalTermFreq())
	te, err := terms.Iterator()
	require.NoError(t, err)
	var got []string
	for {
		term, err := te.Next()
		require.NoError(t, err)
		if term == nil {
			break
		}
		got = append(got, string(term))
	}
	assert.Equal(t, []string{"a", "b"}, got)

	terms, err = fields.Terms("body")
	require.NoError(t, err)
	assert.Equal(t, int64(3), terms.SumTotalTermFreq())
	te, err = terms.Iterator()
	require.NoError(t, err)
	term, err := te.Next()
	require.NoError(t, err)
	assert.Equal(t, "quick", string(term))
	ttf, err := te.TotalTermFreq()
	require.NoError(t, err)
	assert.Equal(t, int64(3), ttf)

	pe, err := te.Postings(model.POSTINGS_FLAG_ALL)
	require.NoError(t, err)
	doc, err := pe.NextDoc()
	require.NoError(t, err)
	assert.Equal(t, 0, doc)
	freq, err := pe.Freq()
	require.NoError(t, err)
	assert.Equal(t, 2, freq)
	pos, _ := pe.NextPosition()
	assert.Equal(t, 0, pos)
	pos, _ = pe.NextPosition()
	assert.Equal(t, 3, pos)
	start, _ := pe.StartOffset()
	end, _ := pe.EndOffset()
	payload, _ := pe.Payload()
	assert.Equal(t, []int{16, 21}, []int{start, end})
	assert.Equal(t, []byte("p"), payload)

	doc, err = pe.Advance(2)
	require.NoError(t, err)
	assert.Equal(t, 2, doc)
	doc, err = pe.NextDoc()
	require.NoError(t, err)
	assert.Equal(t, model.NO_MORE_DOCS, doc)

	norms, err := fields.Norms(fields.FieldInfos().FieldInfoByName("body"))
	require.NoError(t, err)
	for doc, want := range []int64{7, 0, 3} {
		found, err := norms.AdvanceExact(doc)
		require.NoError(t, err)
		require.Equal(t, want != 0, found, "doc=%v", doc)
		if found {
			v, err := norms.LongValue()
			require.NoError(t, err)
			assert.Equal(t, want, v)
		}
	}
	norms, err = fields.Norms(fields.FieldInfos().FieldInfoByName("id"))
	require.NoError(t, err)
	assert.Nil(t, norms)
}

func TestBuilderKeepsInsertionOrder(t *testing.T) {
	b := NewBuilder()
	b.AddField("f", model.INDEX_OPT_DOCS_AND_FREQS, false, true)
	b.AddDoc("f", []byte("t"), 9, 2)
	b.AddDoc("f", []byte("t"), 9, 1)
	b.AddDoc("f", []byte("t"), 4, 1)
	b.SetMaxDoc(20)
	fields := b.Finish()
	assert.Equal(t, 20, fields.MaxDoc())

	terms, _ := fields.Terms("f")
	te, _ := terms.Iterator()
	_, err := te.Next()
	require.NoError(t, err)
	df, _ := te.DocFreq()
	assert.Equal(t, 2, df)
	pe, _ := te.Postings(model.POSTINGS_FLAG_FREQS)
	var docs, freqs []int
	for doc, _ := pe.NextDoc(); doc != model.NO_MORE_DOCS; doc, _ = pe.NextDoc() {
		freq, _ := pe.Freq()
		docs, freqs = append(docs, doc), append(freqs, freq)
	}
	assert.Equal(t, []int{9, 4}, docs)
	assert.Equal(t, []int{3, 1}, freqs)

	assert.Panics(t, func() { b.SetMaxDoc(5) })
}
