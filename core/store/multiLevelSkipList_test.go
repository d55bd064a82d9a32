package store

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type docSkipWriter struct {
	*MultiLevelSkipListWriter
	curDoc  int
	lastDoc []int
}

func (w *docSkipWriter) WriteSkipData(level int, out IndexOutput) error {
	delta := w.curDoc - w.lastDoc[level]
	w.lastDoc[level] = w.curDoc
	return out.WriteVInt(int32(delta))
}

type docSkipReader struct {
	*MultiLevelSkipListReader
}

func (r *docSkipReader) ReadSkipData(level int, in IndexInput) (int, error) {
	delta, err := in.ReadVInt()
	return int(delta), err
}

func (r *docSkipReader) SetLastSkipData(level int) {}
func (r *docSkipReader) SeekChild(level int)       {}

func TestMultiLevelSkipList(t *testing.T) {
	const (
		interval   = 4
		multiplier = 2
		maxLevels  = 6
		numDocs    = 1000
	)
	docs := make([]int, numDocs)
	for i := range docs {
		docs[i] = 3*i + 1
	}

	w := &docSkipWriter{lastDoc: make([]int, maxLevels)}
	w.MultiLevelSkipListWriter = NewMultiLevelSkipListWriter(w, interval, multiplier, maxLevels, numDocs)
	assert.Equal(t, maxLevels, w.NumberOfSkipLevels())
	w.ResetSkip()
	var entries []int
	for i, doc := range docs {
		if df := i + 1; df%interval == 0 {
			w.curDoc = doc
			entries = append(entries, doc)
			require.NoError(t, w.BufferSkip(df))
		}
	}

	dir := NewRAMDirectory()
	out, err := dir.CreateOutput("skip", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, out.WriteString("header"))
	skipPointer, err := w.WriteSkip(out)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	in, err := dir.OpenInput("skip", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	r := &docSkipReader{}
	r.MultiLevelSkipListReader = NewMultiLevelSkipListReader(r, in, maxLevels, interval, multiplier)

	expect := func(target int) (int, int) {
		// last skip entry strictly before target
		k := sort.SearchInts(entries, target)
		if k == 0 {
			return 0, -1
		}
		return entries[k-1], k*interval - 1
	}

	seed := time.Now().UnixNano()
	t.Logf("seed=%v", seed)
	rnd := rand.New(rand.NewSource(seed))
	for iter := 0; iter < 200; iter++ {
		target := 1 + rnd.Intn(docs[numDocs-1]+10)
		require.NoError(t, r.Init(skipPointer, numDocs))
		skipped, err := r.SkipTo(target)
		require.NoError(t, err)
		doc, n := expect(target)
		require.Equal(t, doc, r.Doc(), "target=%v", target)
		require.Equal(t, n, skipped, "target=%v", target)
		if n >= 0 {
			require.Equal(t, docs[n], r.Doc())
		}
	}

	// forward-only sequence on a single init
	require.NoError(t, r.Init(skipPointer, numDocs))
	for target := 1; target < docs[numDocs-1]+10; target += 1 + rnd.Intn(50) {
		skipped, err := r.SkipTo(target)
		require.NoError(t, err)
		doc, n := expect(target)
		require.Equal(t, doc, r.Doc(), "target=%v", target)
		require.Equal(t, n, skipped, "target=%v", target)
	}
	require.NoError(t, r.Close())
}
