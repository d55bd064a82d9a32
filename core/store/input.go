package store

import (
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/ironsweet/esengine/core/util"
	"github.com/pkg/errors"
)

// store/IndexInput.java

/*
Abstract base for input from a file in a Directory. A random-access
input stream. Used for all index reads.
*/
type IndexInput interface {
	io.Closer
	util.DataInput
	// Returns the current position in this file, where the next read
	// will occur.
	FilePointer() int64
	// Sets current position in this file, where the next read will
	// occur.
	Seek(pos int64) error
	// The number of bytes in the file.
	Length() int64
	// Returns a clone positioned independently of this input. Closing
	// a clone does not release the underlying resource.
	Clone() IndexInput
}

type IndexInputImpl struct {
	*util.DataInputImpl
	desc string
}

func NewIndexInputImpl(desc string, r util.DataReader) *IndexInputImpl {
	assert2(desc != "", "resourceDescription must not be null")
	return &IndexInputImpl{DataInputImpl: util.NewDataInput(r), desc: desc}
}

func (in *IndexInputImpl) String() string {
	return in.desc
}

func errReadPastEOF(in fmt.Stringer) error {
	return errors.Wrapf(io.ErrUnexpectedEOF, "read past EOF: %v", in)
}

// store/ChecksumIndexInput.java

/*
Extension of IndexInput, computing checksum as it goes.
Callers can retrieve the checksum via Checksum().
*/
type ChecksumIndexInput interface {
	IndexInput
	Checksum() int64
}

// store/BufferedChecksumIndexInput.java

/*
Simple implementation of ChecksumIndexInput that wraps another input
and delegates calls.
*/
type BufferedChecksumIndexInput struct {
	*IndexInputImpl
	main   IndexInput
	digest hash.Hash32
}

func NewBufferedChecksumIndexInput(main IndexInput) *BufferedChecksumIndexInput {
	ans := &BufferedChecksumIndexInput{
		main:   main,
		digest: crc32.NewIEEE(),
	}
	ans.IndexInputImpl = NewIndexInputImpl(
		fmt.Sprintf("BufferedChecksumIndexInput(%v)", main), ans)
	return ans
}

func (in *BufferedChecksumIndexInput) ReadByte() (b byte, err error) {
	if b, err = in.main.ReadByte(); err == nil {
		in.digest.Write([]byte{b})
	}
	return
}

func (in *BufferedChecksumIndexInput) ReadBytes(p []byte) (err error) {
	if err = in.main.ReadBytes(p); err == nil {
		in.digest.Write(p)
	}
	return
}

func (in *BufferedChecksumIndexInput) Checksum() int64 {
	return int64(in.digest.Sum32())
}

func (in *BufferedChecksumIndexInput) Close() error {
	return in.main.Close()
}

func (in *BufferedChecksumIndexInput) FilePointer() int64 {
	return in.main.FilePointer()
}

/*
Seeking is only possible forward: the skipped bytes are read so that
they are part of the checksum.
*/
func (in *BufferedChecksumIndexInput) Seek(pos int64) error {
	skip := pos - in.FilePointer()
	if skip < 0 {
		return errors.Errorf("%v cannot seek backwards (pos=%v, current=%v)", in, pos, in.FilePointer())
	}
	return in.SkipBytes(skip)
}

func (in *BufferedChecksumIndexInput) Length() int64 {
	return in.main.Length()
}

func (in *BufferedChecksumIndexInput) Clone() IndexInput {
	panic("not supported")
}

// store/ByteArrayDataInput.java

// DataInput backed by a byte slice.
type ByteArrayDataInput struct {
	*util.DataInputImpl
	bytes []byte
	Pos   int
}

func NewByteArrayDataInput(bytes []byte) *ByteArrayDataInput {
	ans := &ByteArrayDataInput{}
	ans.DataInputImpl = util.NewDataInput(ans)
	ans.Reset(bytes)
	return ans
}

func (in *ByteArrayDataInput) Reset(bytes []byte) {
	in.bytes = bytes
	in.Pos = 0
}

func (in *ByteArrayDataInput) Length() int {
	return len(in.bytes)
}

func (in *ByteArrayDataInput) EOF() bool {
	return in.Pos == len(in.bytes)
}

func (in *ByteArrayDataInput) ReadByte() (b byte, err error) {
	if in.Pos >= len(in.bytes) {
		return 0, io.ErrUnexpectedEOF
	}
	in.Pos++
	return in.bytes[in.Pos-1], nil
}

func (in *ByteArrayDataInput) ReadBytes(buf []byte) error {
	if in.Pos+len(buf) > len(in.bytes) {
		return io.ErrUnexpectedEOF
	}
	copy(buf, in.bytes[in.Pos:in.Pos+len(buf)])
	in.Pos += len(buf)
	return nil
}
