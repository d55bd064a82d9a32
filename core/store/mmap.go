package store

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// store/MMapDirectory.java

/*
IndexInput over a read-only memory mapping of a whole file. Clones
share the mapping; only the original unmaps it on Close().
*/
type MMapIndexInput struct {
	*IndexInputImpl
	mapping mmap.MMap
	data    []byte
	pos     int
	isClone bool
}

func newMMapIndexInput(desc, path string) (in *MMapIndexInput, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	in = &MMapIndexInput{}
	if fi.Size() > 0 {
		// mapping a zero-length file is rejected by the OS
		if in.mapping, err = mmap.Map(f, mmap.RDONLY, 0); err != nil {
			return nil, errors.Wrapf(err, "mmap %v", path)
		}
		in.data = in.mapping
	}
	in.IndexInputImpl = NewIndexInputImpl(desc, in)
	return in, nil
}

func (in *MMapIndexInput) ReadByte() (byte, error) {
	if in.pos >= len(in.data) {
		return 0, errReadPastEOF(in)
	}
	b := in.data[in.pos]
	in.pos++
	return b, nil
}

func (in *MMapIndexInput) ReadBytes(buf []byte) error {
	if in.pos+len(buf) > len(in.data) {
		return errReadPastEOF(in)
	}
	copy(buf, in.data[in.pos:])
	in.pos += len(buf)
	return nil
}

func (in *MMapIndexInput) FilePointer() int64 {
	return int64(in.pos)
}

func (in *MMapIndexInput) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(in.data)) {
		return errors.Errorf("seek to %v out of bounds: %v", pos, in)
	}
	in.pos = int(pos)
	return nil
}

func (in *MMapIndexInput) Length() int64 {
	return int64(len(in.data))
}

func (in *MMapIndexInput) Clone() IndexInput {
	ans := &MMapIndexInput{data: in.data, pos: in.pos, isClone: true}
	ans.IndexInputImpl = NewIndexInputImpl(in.desc, ans)
	return ans
}

func (in *MMapIndexInput) Close() error {
	if in.isClone || in.mapping == nil {
		return nil
	}
	err := in.mapping.Unmap()
	in.mapping, in.data = nil, nil
	return err
}

func (in *MMapIndexInput) String() string {
	return fmt.Sprintf("%v [pos=%v]", in.desc, in.pos)
}
