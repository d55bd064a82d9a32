package store

import (
	"io"
	"math"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIO(t *testing.T) {
	filename := "a.txt"
	testdata := "hello world"

	dir := NewRAMDirectory()
	out, err := dir.CreateOutput(filename, IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, out.WriteString(testdata))
	require.NoError(t, out.Close())

	length, err := dir.FileLength(filename)
	require.NoError(t, err)
	assert.Equal(t, int64(len(testdata))+1, length)

	in, err := dir.OpenInput(filename, IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	s, err := in.ReadString()
	require.NoError(t, err)
	assert.Equal(t, testdata, s)

	_, err = in.ReadByte()
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)
}

func TestVariableLengthEncodings(t *testing.T) {
	dir := NewRAMDirectory()
	out, err := dir.CreateOutput("v", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)

	ints := []int32{0, 1, 127, 128, 16383, 16384, math.MaxInt32, -1}
	longs := []int64{0, 1, 1 << 35, math.MaxInt64}
	zlongs := []int64{0, -1, 1, -64, 64, math.MinInt64, math.MaxInt64}
	for _, v := range ints {
		require.NoError(t, out.WriteVInt(v))
	}
	for _, v := range longs {
		require.NoError(t, out.WriteVLong(v))
	}
	for _, v := range zlongs {
		require.NoError(t, out.WriteZLong(v))
	}
	require.NoError(t, out.WriteInt(-42))
	require.NoError(t, out.WriteLong(math.MinInt64+7))
	require.NoError(t, out.WriteStringStringMap(map[string]string{"b": "2", "a": "1"}))
	require.NoError(t, out.WriteStringSet(map[string]bool{"x": true, "y": true}))
	require.NoError(t, out.Close())

	in, err := dir.OpenInput("v", IO_CONTEXT_READ)
	require.NoError(t, err)
	for _, v := range ints {
		got, err := in.ReadVInt()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	for _, v := range longs {
		got, err := in.ReadVLong()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	for _, v := range zlongs {
		got, err := in.ReadZLong()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	i, err := in.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int32(-42), i)
	l, err := in.ReadLong()
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64+7), l)
	m, err := in.ReadStringStringMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, m)
	set, err := in.ReadStringSet()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"x": true, "y": true}, set)
	assert.Equal(t, in.Length(), in.FilePointer())
}

func TestRAMInputSeekAcrossBuffers(t *testing.T) {
	dir := NewRAMDirectory()
	out, err := dir.CreateOutput("big", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	data := make([]byte, 3*RAM_BUFFER_SIZE)
	for i := range data {
		data[i] = byte(i * 7)
	}
	require.NoError(t, out.WriteBytes(data))
	assert.Equal(t, int64(len(data)), out.FilePointer())
	require.NoError(t, out.Close())

	in, err := dir.OpenInput("big", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	for _, pos := range []int64{0, 1, RAM_BUFFER_SIZE - 1, RAM_BUFFER_SIZE, 2*RAM_BUFFER_SIZE + 5} {
		require.NoError(t, in.Seek(pos))
		assert.Equal(t, pos, in.FilePointer())
		b, err := in.ReadByte()
		require.NoError(t, err)
		assert.Equal(t, data[pos], b, "pos=%v", pos)
	}

	clone := in.Clone()
	require.NoError(t, in.Seek(int64(len(data))))
	assert.Equal(t, int64(len(data)), in.FilePointer())
	_, err = in.ReadByte()
	assert.Error(t, err)

	// the clone keeps its own position
	b, err := clone.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, data[2*RAM_BUFFER_SIZE+6], b)

	buf := make([]byte, RAM_BUFFER_SIZE+10)
	require.NoError(t, clone.Seek(RAM_BUFFER_SIZE-5))
	require.NoError(t, clone.ReadBytes(buf))
	assert.Equal(t, data[RAM_BUFFER_SIZE-5:2*RAM_BUFFER_SIZE+5], buf)
}

func TestRAMOutputStreamWriteTo(t *testing.T) {
	scratch := NewRAMOutputStreamBuffer()
	for i := 0; i < 2000; i++ {
		require.NoError(t, scratch.WriteVInt(int32(i)))
	}
	dir := NewRAMDirectory()
	out, err := dir.CreateOutput("copy", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, scratch.WriteTo(out))
	assert.Equal(t, scratch.FilePointer(), out.FilePointer())
	require.NoError(t, out.Close())

	scratch.Reset()
	assert.Equal(t, int64(0), scratch.FilePointer())

	in, err := dir.OpenInput("copy", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	for i := 0; i < 2000; i++ {
		v, err := in.ReadVInt()
		require.NoError(t, err)
		require.Equal(t, int32(i), v)
	}
}

func TestRAMDirectoryDeleteAndList(t *testing.T) {
	dir := NewRAMDirectory()
	for _, name := range []string{"b", "a"} {
		out, err := dir.CreateOutput(name, IO_CONTEXT_DEFAULT)
		require.NoError(t, err)
		require.NoError(t, out.WriteByte(1))
		require.NoError(t, out.Close())
	}
	names, err := dir.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
	assert.Equal(t, int64(2*RAM_BUFFER_SIZE), dir.RamBytesUsed())

	require.NoError(t, dir.DeleteFile("a"))
	assert.False(t, dir.FileExists("a"))
	assert.Equal(t, int64(RAM_BUFFER_SIZE), dir.RamBytesUsed())
	err = dir.DeleteFile("a")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, dir.Close())
	_, err = dir.ListAll()
	assert.Equal(t, ErrAlreadyClosed, err)
}

func TestChecksumInputMatchesOutput(t *testing.T) {
	dir := NewRAMDirectory()
	out, err := dir.CreateOutput("c", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, out.WriteString("checksummed"))
	require.NoError(t, out.WriteLong(12345))
	expected := out.Checksum()
	require.NoError(t, out.Close())

	in, err := dir.OpenChecksumInput("c", IO_CONTEXT_READONCE)
	require.NoError(t, err)
	require.NoError(t, in.Seek(in.Length()))
	assert.Equal(t, expected, in.Checksum())
	assert.Error(t, in.Seek(0), "checksum inputs only seek forward")
}

func TestCopy(t *testing.T) {
	from, to := NewRAMDirectory(), NewRAMDirectory()
	out, err := from.CreateOutput("src", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, out.WriteString("payload"))
	require.NoError(t, out.Close())

	require.NoError(t, Copy(from, to, "src", "dst", IO_CONTEXT_DEFAULT))
	in, err := to.OpenInput("dst", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	s, err := in.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "payload", s)

	assert.Error(t, Copy(from, to, "missing", "dst2", IO_CONTEXT_DEFAULT))
	assert.False(t, to.FileExists("dst2"))
}
