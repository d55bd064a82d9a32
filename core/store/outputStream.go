package store

import (
	"bufio"
	"hash"
	"hash/crc32"
	"io"

	"github.com/ironsweet/esengine/core/util"
)

// store/OutputStreamIndexOutput.java

/* Implementation class for buffered IndexOutput that writes to a WriterCloser. */
type OutputStreamIndexOutput struct {
	*IndexOutputImpl

	desc string
	crc  hash.Hash32
	os   *bufio.Writer
	out  io.WriteCloser

	bytesWritten int64
}

/* Creates a new OutputStreamIndexOutput with the given buffer size. */
func newOutputStreamIndexOutput(desc string, out io.WriteCloser, bufferSize int) *OutputStreamIndexOutput {
	ans := &OutputStreamIndexOutput{
		desc: desc,
		crc:  crc32.NewIEEE(),
		os:   bufio.NewWriterSize(out, bufferSize),
		out:  out,
	}
	ans.IndexOutputImpl = NewIndexOutput(ans)
	return ans
}

func (out *OutputStreamIndexOutput) WriteByte(b byte) error {
	out.crc.Write([]byte{b})
	if err := out.os.WriteByte(b); err != nil {
		return err
	}
	out.bytesWritten++
	return nil
}

func (out *OutputStreamIndexOutput) WriteBytes(p []byte) error {
	out.crc.Write(p)
	if _, err := out.os.Write(p); err != nil {
		return err
	}
	out.bytesWritten += int64(len(p))
	return nil
}

func (out *OutputStreamIndexOutput) Close() error {
	return util.CloseWhileHandlingError(out.os.Flush(), out.out)
}

func (out *OutputStreamIndexOutput) FilePointer() int64 {
	return out.bytesWritten
}

func (out *OutputStreamIndexOutput) Checksum() int64 {
	return int64(out.crc.Sum32())
}

func (out *OutputStreamIndexOutput) String() string {
	return out.desc
}
