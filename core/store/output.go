package store

import (
	"io"

	"github.com/ironsweet/esengine/core/util"
)

// store/IndexOutput.java

/*
Abstract base for output to a file in a Directory. A random-access
output stream used for all index writes.
*/
type IndexOutput interface {
	io.Closer
	util.DataOutput
	// Returns the current position in this file, where the next write
	// will occur.
	FilePointer() int64
	// Returns the current checksum of bytes written so far
	Checksum() int64
}

type IndexOutputImpl struct {
	*util.DataOutputImpl
}

func NewIndexOutput(part util.DataWriter) *IndexOutputImpl {
	return &IndexOutputImpl{util.NewDataOutput(part)}
}

// store/ByteArrayDataOutput.java

// DataOutput backed by a byte slice.
type ByteArrayDataOutput struct {
	*util.DataOutputImpl
	data  []byte
	pos   int
	limit int
}

func NewByteArrayDataOutput(data []byte) *ByteArrayDataOutput {
	ans := &ByteArrayDataOutput{}
	ans.DataOutputImpl = util.NewDataOutput(ans)
	ans.Reset(data)
	return ans
}

func (o *ByteArrayDataOutput) Reset(data []byte) {
	o.data = data
	o.pos = 0
	o.limit = len(data)
}

func (o *ByteArrayDataOutput) Position() int {
	return o.pos
}

func (o *ByteArrayDataOutput) WriteByte(b byte) error {
	assertTrue(o.pos < o.limit)
	o.data[o.pos] = b
	o.pos++
	return nil
}

func (o *ByteArrayDataOutput) WriteBytes(b []byte) error {
	assertTrue(o.pos+len(b) <= o.limit)
	copy(o.data[o.pos:], b)
	o.pos += len(b)
	return nil
}
