package codec

import (
	"errors"
	"testing"

	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWithHeader(t *testing.T, dir store.Directory, name string, id []byte) {
	out, err := dir.CreateOutput(name, store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, WriteIndexHeader(out, "FooCodec", 3, id, "xyz"))
	assert.Equal(t, int64(IndexHeaderLength("FooCodec", "xyz")), out.FilePointer())
	require.NoError(t, out.WriteString("body"))
	require.NoError(t, WriteFooter(out))
	require.NoError(t, out.Close())
}

func TestIndexHeaderAndFooter(t *testing.T) {
	dir := store.NewRAMDirectory()
	id := model.NewSegmentID()
	writeWithHeader(t, dir, "f", id)

	in, err := dir.OpenChecksumInput("f", store.IO_CONTEXT_READONCE)
	require.NoError(t, err)
	version, err := CheckIndexHeader(in, "FooCodec", 1, 3, id, "xyz")
	require.NoError(t, err)
	assert.Equal(t, int32(3), version)
	s, err := in.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "body", s)
	cs, err := CheckFooter(in)
	require.NoError(t, err)
	require.NoError(t, in.Close())

	raw, err := dir.OpenInput("f", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	stored, err := RetrieveChecksum(raw)
	require.NoError(t, err)
	assert.Equal(t, cs, stored)
	whole, err := ChecksumEntireFile(raw)
	require.NoError(t, err)
	assert.Equal(t, cs, whole)
}

func TestIndexHeaderMismatch(t *testing.T) {
	dir := store.NewRAMDirectory()
	id := model.NewSegmentID()
	writeWithHeader(t, dir, "f", id)

	check := func(codec string, min, max int32, id []byte, suffix string) error {
		in, err := dir.OpenInput("f", store.IO_CONTEXT_DEFAULT)
		require.NoError(t, err)
		defer in.Close()
		_, err = CheckIndexHeader(in, codec, min, max, id, suffix)
		return err
	}

	var corrupt *model.CorruptIndexError
	assert.True(t, errors.As(check("BarCodec", 0, 3, id, "xyz"), &corrupt))
	assert.True(t, errors.As(check("FooCodec", 0, 3, model.NewSegmentID(), "xyz"), &corrupt))
	assert.True(t, errors.As(check("FooCodec", 0, 3, id, "abc"), &corrupt))

	var tooNew *model.IndexFormatTooNewError
	assert.True(t, errors.As(check("FooCodec", 0, 2, id, "xyz"), &tooNew))
	var tooOld *model.IndexFormatTooOldError
	assert.True(t, errors.As(check("FooCodec", 4, 5, id, "xyz"), &tooOld))
}

func TestFooterDetectsCorruption(t *testing.T) {
	dir := store.NewRAMDirectory()
	out, err := dir.CreateOutput("f", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, WriteHeader(out, "FooCodec", 0))
	require.NoError(t, out.WriteInt(FOOTER_MAGIC))
	require.NoError(t, out.WriteInt(0))
	require.NoError(t, out.WriteLong(12345))
	require.NoError(t, out.Close())

	in, err := dir.OpenInput("f", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	_, err = ChecksumEntireFile(in)
	var corrupt *model.CorruptIndexError
	assert.True(t, errors.As(err, &corrupt), "got %v", err)

	short, err := dir.CreateOutput("short", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, short.WriteInt(1))
	require.NoError(t, short.Close())
	in, err = dir.OpenInput("short", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	_, err = RetrieveChecksum(in)
	assert.True(t, errors.As(err, &corrupt), "got %v", err)
}
