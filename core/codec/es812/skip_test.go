package es812

import (
	"testing"

	"github.com/ironsweet/esengine/core/codec"
	"github.com/ironsweet/esengine/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type skipEntry struct {
	doc     int
	docFP   int64
	impacts []codec.Impact
}

func TestSkipWriterReader(t *testing.T) {
	const numBlocks = 100
	df := numBlocks*BLOCK_SIZE + 5

	dir := store.NewRAMDirectory()
	docOut, err := dir.CreateOutput("_0.doc", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, docOut.WriteString("header"))
	docBase := docOut.FilePointer()

	w := NewSkipWriter(MAX_SKIP_LEVELS, BLOCK_SIZE, df, docOut, nil, nil)
	require.Equal(t, 3, w.NumberOfSkipLevels())
	w.SetField(false, false, false)
	w.ResetSkip()

	var entries []skipEntry
	acc := codec.NewCompetitiveImpactAccumulator()
	for b := 0; b < numBlocks; b++ {
		// stand-in for an encoded block
		require.NoError(t, docOut.WriteBytes(make([]byte, 3+b%7)))
		acc.Clear()
		acc.Add(1+b%5, int64(10+b))
		acc.Add(7+b%3, int64(200+b))
		expected := codec.NewCompetitiveImpactAccumulator()
		expected.AddAll(acc)

		doc := (b+1)*BLOCK_SIZE*2 - 1
		entries = append(entries, skipEntry{doc, docOut.FilePointer(), expected.CompetitiveFreqNormPairs()})
		require.NoError(t, w.BufferSkip(doc, acc, (b+1)*BLOCK_SIZE, 0, 0, 0, 0))
	}
	skipPointer, err := w.WriteSkip(docOut)
	require.NoError(t, err)
	require.NoError(t, docOut.Close())

	in, err := dir.OpenInput("_0.doc", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	r := NewSkipReader(in.Clone(), MAX_SKIP_LEVELS, false, false, false)

	for k, entry := range entries {
		require.NoError(t, r.Init(skipPointer, docBase, 0, 0, df))
		skipped, err := r.SkipTo(entry.doc)
		require.NoError(t, err)
		assert.Equal(t, k*BLOCK_SIZE-1, skipped, "entry %v", k)
		if k == 0 {
			assert.Equal(t, docBase, r.DocPointer())
			assert.Equal(t, 0, r.Doc())
		} else {
			assert.Equal(t, entries[k-1].docFP, r.DocPointer(), "entry %v", k)
			assert.Equal(t, entries[k-1].doc, r.Doc(), "entry %v", k)
		}
		assert.Equal(t, entry.doc, r.NextSkipDoc())

		impacts, err := r.Impacts(0)
		require.NoError(t, err)
		assert.Equal(t, entry.impacts, impacts, "entry %v", k)
	}

	// beyond the last entry
	require.NoError(t, r.Init(skipPointer, docBase, 0, 0, df))
	skipped, err := r.SkipTo(entries[numBlocks-1].doc + 1)
	require.NoError(t, err)
	assert.Equal(t, numBlocks*BLOCK_SIZE-1, skipped)
	assert.Equal(t, entries[numBlocks-1].docFP, r.DocPointer())
	require.NoError(t, r.Close())
}

func TestSkipReaderTrimsFullLastBlock(t *testing.T) {
	assert.Equal(t, 255, trim(256))
	assert.Equal(t, 257, trim(257))
	assert.Equal(t, 1, trim(1))
}

func TestImpactsEncoding(t *testing.T) {
	acc := codec.NewCompetitiveImpactAccumulator()
	acc.Add(1, 1)
	acc.Add(3, 2)
	acc.Add(4, 40)
	acc.Add(100, 41)
	out := store.NewRAMOutputStreamBuffer()
	require.NoError(t, writeImpacts(acc, out))

	data := make([]byte, out.FilePointer())
	require.NoError(t, out.WriteTo(store.NewByteArrayDataOutput(data)))

	// (1,1) is one past (0,0) in both: a single zero byte
	assert.Equal(t, byte(0), data[0])
	impacts, err := decodeImpacts(store.NewByteArrayDataInput(data))
	require.NoError(t, err)
	assert.Equal(t, acc.CompetitiveFreqNormPairs(), impacts)
}
