package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"esindex"}, args...))
	return out.String(), err
}

func TestWriteDumpAndListCommits(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "write", "--dir", dir, "--docs", "100", "--seed", "7")
	require.NoError(t, err)
	assert.Equal(t, "_0\n", out)
	out, err = run(t, "--log-level", "debug", "write", "--dir", dir, "--docs", "50")
	require.NoError(t, err)
	assert.Equal(t, "_1\n", out)

	out, err = run(t, "commits", "--dir", dir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1, "older commits are deleted once safe")
	assert.True(t, strings.HasPrefix(lines[0], "* segments_3 segments=2 docs=150"), lines[0])

	out, err = run(t, "dump", "--dir", dir, "--segment", "_1", "--field", "id")
	require.NoError(t, err)
	assert.Contains(t, out, "segment _1 maxDoc=50")
	assert.Contains(t, out, "field id")
	assert.Contains(t, out, "\"49\" docFreq=1 totalTermFreq=1")
	assert.NotContains(t, out, "field body")

	out, err = run(t, "dump", "--dir", dir, "--segment", "_0", "--field", "annotated", "--positions")
	require.NoError(t, err)
	assert.Contains(t, out, "offsets=0-")

	_, err = run(t, "dump", "--dir", dir, "--segment", "_9")
	assert.Error(t, err)
}

func TestNewTranslogCommitIsSafe(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "write", "--dir", dir, "--docs", "10")
	require.NoError(t, err)
	_, err = run(t, "write", "--dir", dir, "--docs", "10", "--new-translog")
	require.NoError(t, err)

	out, err := run(t, "commits", "--dir", dir, "--global-checkpoint", "0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "* segments_3"), out)
}

func TestInvalidFlags(t *testing.T) {
	_, err := run(t, "write", "--dir", t.TempDir(), "--docs", "0")
	assert.Error(t, err)
	_, err = run(t, "--log-level", "loud", "commits", "--dir", t.TempDir())
	assert.Error(t, err)
}
