package codec

import (
	"bytes"
	"fmt"

	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
)

// codecs/CodecUtil.java

/* Constant to identify the start of a codec header. */
const CODEC_MAGIC = 0x3fd76c17

/* Constant to identify the start of a codec footer. */
const FOOTER_MAGIC = ^CODEC_MAGIC

const FOOTER_LENGTH = 16

/*
Writes a codec header, which records both a string to identify the
file and a version number. This header can be parsed and validated
with CheckHeader().

CodecHeader --> Magic,CodecName,Version
	Magic --> uint32. This identifies the start of the header. It is
	always CODEC_MAGIC.
	CodecName --> string. This is a string to identify this file.
	Version --> uint32. Records the version of the file.

Note that the length of a codec header depends only upon the name of
the codec, so this length can be computed at any time with
HeaderLength().
*/
func WriteHeader(out util.DataOutput, codec string, version int) error {
	assertTrue(out != nil)
	bytes := []byte(codec)
	assert2(len(bytes) == len(codec) && len(bytes) < 128,
		"codec must be simple ASCII, less than 128 characters in length [got %v]", codec)
	err := out.WriteInt(CODEC_MAGIC)
	if err == nil {
		err = out.WriteString(codec)
		if err == nil {
			err = out.WriteInt(int32(version))
		}
	}
	return err
}

/*
Writes a codec header for a per-segment index file, which records
both a string to identify the format of the file, a version number,
and data to identify the file instance (ID and auxiliary suffix such
as generation).

IndexHeader --> CodecHeader,ObjectID,ObjectSuffix
	ObjectID --> 16 bytes. Unique identifier for this particular file
	instance.
	ObjectSuffix --> SuffixLength,SuffixBytes. SuffixLength is a
	single byte.
*/
func WriteIndexHeader(out util.DataOutput, codec string, version int, id []byte, suffix string) error {
	assert2(len(id) == model.ID_LENGTH, "Invalid id: %v", model.IDToString(id))
	assert2(len(suffix) < 256, "suffix must be simple ASCII, less than 256 characters in length [got %v]", suffix)
	if err := WriteHeader(out, codec, version); err != nil {
		return err
	}
	if err := out.WriteBytes(id); err != nil {
		return err
	}
	if err := out.WriteByte(byte(len(suffix))); err != nil {
		return err
	}
	return out.WriteBytes([]byte(suffix))
}

func assertTrue(ok bool) {
	assert2(ok, "assert fail")
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}

/* Computes the length of a codec header */
func HeaderLength(codec string) int {
	return 9 + len(codec)
}

/* Computes the length of an index header */
func IndexHeaderLength(codec, suffix string) int {
	return HeaderLength(codec) + model.ID_LENGTH + 1 + len(suffix)
}

func CheckHeader(in store.IndexInput, codec string, minVersion, maxVersion int32) (v int32, err error) {
	// Safety to guard against reading a bogus string:
	actualHeader, err := in.ReadInt()
	if err != nil {
		return 0, err
	}
	if actualHeader != CODEC_MAGIC {
		return 0, model.NewCorruptIndexError(in,
			"codec header mismatch: actual header=%v vs expected header=%v",
			actualHeader, CODEC_MAGIC)
	}
	return CheckHeaderNoMagic(in, codec, minVersion, maxVersion)
}

func CheckHeaderNoMagic(in store.IndexInput, codec string, minVersion, maxVersion int32) (v int32, err error) {
	actualCodec, err := in.ReadString()
	if err != nil {
		return 0, err
	}
	if actualCodec != codec {
		return 0, model.NewCorruptIndexError(in,
			"codec mismatch: actual codec=%v vs expected codec=%v", actualCodec, codec)
	}

	actualVersion, err := in.ReadInt()
	if err != nil {
		return 0, err
	}
	if actualVersion < minVersion {
		return 0, model.NewIndexFormatTooOldError(in, actualVersion, minVersion, maxVersion)
	}
	if actualVersion > maxVersion {
		return 0, model.NewIndexFormatTooNewError(in, actualVersion, minVersion, maxVersion)
	}

	return actualVersion, nil
}

/*
Reads and validates a header previously written with
WriteIndexHeader(). Returns the actual version.
*/
func CheckIndexHeader(in store.IndexInput, codec string, minVersion, maxVersion int32,
	expectedID []byte, expectedSuffix string) (int32, error) {

	version, err := CheckHeader(in, codec, minVersion, maxVersion)
	if err != nil {
		return 0, err
	}
	if err = CheckIndexHeaderID(in, expectedID); err != nil {
		return 0, err
	}
	if err = CheckIndexHeaderSuffix(in, expectedSuffix); err != nil {
		return 0, err
	}
	return version, nil
}

/* Expert: just reads and verifies the object ID of an index header */
func CheckIndexHeaderID(in store.IndexInput, expectedID []byte) error {
	id := make([]byte, model.ID_LENGTH)
	if err := in.ReadBytes(id); err != nil {
		return err
	}
	if !bytes.Equal(id, expectedID) {
		return model.NewCorruptIndexError(in,
			"file mismatch, expected id=%v, got=%v",
			model.IDToString(expectedID), model.IDToString(id))
	}
	return nil
}

/* Expert: just reads and verifies the suffix of an index header */
func CheckIndexHeaderSuffix(in store.IndexInput, expectedSuffix string) error {
	n, err := in.ReadByte()
	if err != nil {
		return err
	}
	suffix := make([]byte, n)
	if err = in.ReadBytes(suffix); err != nil {
		return err
	}
	if string(suffix) != expectedSuffix {
		return model.NewCorruptIndexError(in,
			"file mismatch, expected suffix=%v, got=%v", expectedSuffix, string(suffix))
	}
	return nil
}

/*
Writes a codec footer, which records both a checksum algorithm ID and
a checksum. This footer can be parsed and validated with CheckFooter().

CodecFooter --> Magic,AlgorithmID,Checksum
	- Magic --> uint32. This identifies the start of the footer. It is
		always FOOTER_MAGIC.
	- AlgorithmID --> uing32. This indicates the checksum algorithm
		used. Currently this is always 0, for zlib-crc32.
	- Checksum --> uint64. The actual checksum value for all previous
		bytes in the stream, including the bytes from Magic and AlgorithmID.
*/
func WriteFooter(out store.IndexOutput) (err error) {
	if err = out.WriteInt(FOOTER_MAGIC); err == nil {
		if err = out.WriteInt(0); err == nil {
			err = out.WriteLong(out.Checksum())
		}
	}
	return
}

/* Validates the codec footer previously written by WriteFooter(). */
func CheckFooter(in store.ChecksumIndexInput) (cs int64, err error) {
	if remaining := in.Length() - in.FilePointer(); remaining != FOOTER_LENGTH {
		if remaining < FOOTER_LENGTH {
			return 0, model.NewCorruptIndexError(in,
				"misplaced codec footer (file truncated?): remaining=%v, expected=%v",
				remaining, FOOTER_LENGTH)
		}
		return 0, model.NewCorruptIndexError(in,
			"misplaced codec footer (file extended?): remaining=%v, expected=%v",
			remaining, FOOTER_LENGTH)
	}
	if err = validateFooter(in); err == nil {
		cs = in.Checksum()
		var cs2 int64
		if cs2, err = in.ReadLong(); err == nil {
			if cs != cs2 {
				return 0, model.NewCorruptIndexError(in,
					"checksum failed (hardware problem?): expected=%x actual=%x", cs2, cs)
			}
			if err = CheckEOF(in); err != nil {
				return 0, err
			}
		}
	}
	return
}

/* Returns (but does not validate) the checksum previously written by CheckFooter. */
func RetrieveChecksum(in store.IndexInput) (int64, error) {
	if in.Length() < FOOTER_LENGTH {
		return 0, model.NewCorruptIndexError(in,
			"misplaced codec footer (file truncated?): length=%v but footerLength==%v",
			in.Length(), FOOTER_LENGTH)
	}
	var err error
	if err = in.Seek(in.Length() - FOOTER_LENGTH); err != nil {
		return 0, err
	}
	if err = validateFooter(in); err != nil {
		return 0, err
	}
	return in.ReadLong()
}

/*
Clones the provided input, reads all bytes from the file, and calls
CheckFooter(). Note that this method may be slow, as it must process
the entire file.
*/
func ChecksumEntireFile(input store.IndexInput) (int64, error) {
	clone := input.Clone()
	if err := clone.Seek(0); err != nil {
		return 0, err
	}
	in := store.NewBufferedChecksumIndexInput(clone)
	assertTrue(in.FilePointer() == 0)
	if in.Length() < FOOTER_LENGTH {
		return 0, model.NewCorruptIndexError(input,
			"misplaced codec footer (file truncated?): length=%v but footerLength==%v",
			in.Length(), FOOTER_LENGTH)
	}
	if err := in.Seek(in.Length() - FOOTER_LENGTH); err != nil {
		return 0, err
	}
	return CheckFooter(in)
}

func validateFooter(in store.IndexInput) error {
	magic, err := in.ReadInt()
	if err != nil {
		return err
	}
	if magic != FOOTER_MAGIC {
		return model.NewCorruptIndexError(in,
			"codec footer mismatch (file truncated?): actual footer=%v vs expected footer=%v",
			magic, FOOTER_MAGIC)
	}

	algorithmId, err := in.ReadInt()
	if err != nil {
		return err
	}
	if algorithmId != 0 {
		return model.NewCorruptIndexError(in,
			"codec footer mismatch: unknown algorithmID: %v", algorithmId)
	}
	return nil
}

/* Checks that the stream is positioned at the end, and returns error if it is not. */
func CheckEOF(in store.IndexInput) error {
	if in.FilePointer() != in.Length() {
		return model.NewCorruptIndexError(in,
			"did not read all bytes from file: read %v vs size %v",
			in.FilePointer(), in.Length())
	}
	return nil
}
