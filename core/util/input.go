package util

import (
	"errors"
)

// store/DataInput.java

/*
Abstract base class for performing read operations of the low-level
data types.

DataInput may only be used from one thread, because it is not thread safe
(it keeps internal state like file position). To allow multithreaded use,
every DataInput instance must be cloned before used in another thread.
*/
type DataInput interface {
	DataReader
	ReadInt() (n int32, err error)
	ReadVInt() (n int32, err error)
	ReadLong() (n int64, err error)
	ReadVLong() (n int64, err error)
	ReadZLong() (n int64, err error)
	ReadString() (s string, err error)
	ReadStringStringMap() (m map[string]string, err error)
	ReadStringSet() (m map[string]bool, err error)
	SkipBytes(numBytes int64) error
}

type DataReader interface {
	/* Reads and returns a single byte.	*/
	ReadByte() (b byte, err error)
	/* Reads a specified number of bytes into an array */
	ReadBytes(buf []byte) error
}

const SKIP_BUFFER_SIZE = 1024

var (
	ErrInvalidVInt  = errors.New("Invalid vInt detected (too many bits)")
	ErrInvalidVLong = errors.New("Invalid vLong detected (negative values disallowed)")
)

type DataInputImpl struct {
	Reader DataReader
	// used to skip over bytes with the default implementation of
	// SkipBytes; per instance so delegating readers that update a
	// checksum never share it
	skipBuffer []byte
}

func NewDataInput(spi DataReader) *DataInputImpl {
	return &DataInputImpl{Reader: spi}
}

func (in *DataInputImpl) ReadByte() (byte, error) {
	return in.Reader.ReadByte()
}

func (in *DataInputImpl) ReadBytes(buf []byte) error {
	return in.Reader.ReadBytes(buf)
}

func (in *DataInputImpl) ReadInt() (n int32, err error) {
	var buf [4]byte
	if err = in.Reader.ReadBytes(buf[:]); err != nil {
		return 0, err
	}
	return (int32(buf[0]) << 24) | (int32(buf[1]) << 16) | (int32(buf[2]) << 8) | int32(buf[3]), nil
}

func (in *DataInputImpl) ReadVInt() (n int32, err error) {
	var b byte
	for shift := uint(0); shift <= 28; shift += 7 {
		if b, err = in.Reader.ReadByte(); err != nil {
			return 0, err
		}
		if shift == 28 {
			// Warning: the next ands use 0x0F / 0xF0 - beware copy/paste errors:
			if b&0xF0 != 0 {
				return 0, ErrInvalidVInt
			}
			return n | (int32(b)&0x0F)<<28, nil
		}
		n |= (int32(b) & 0x7F) << shift
		if b < 128 {
			return n, nil
		}
	}
	return 0, ErrInvalidVInt
}

func (in *DataInputImpl) ReadLong() (n int64, err error) {
	d1, err := in.ReadInt()
	if err != nil {
		return 0, err
	}
	d2, err := in.ReadInt()
	if err != nil {
		return 0, err
	}
	return (int64(d1) << 32) | int64(d2)&0xFFFFFFFF, nil
}

func (in *DataInputImpl) ReadVLong() (int64, error) {
	return in.readVLong(false)
}

/*
Read a zig-zag-encoded variable-length integer.
*/
func (in *DataInputImpl) ReadZLong() (int64, error) {
	n, err := in.readVLong(true)
	if err != nil {
		return 0, err
	}
	return ZigZagDecode(n), nil
}

func (in *DataInputImpl) readVLong(allowNegative bool) (n int64, err error) {
	var b byte
	for shift := uint(0); shift <= 56; shift += 7 {
		if b, err = in.Reader.ReadByte(); err != nil {
			return 0, err
		}
		n |= int64(b&0x7F) << shift
		if b < 128 {
			return n, nil
		}
	}
	if !allowNegative {
		return 0, ErrInvalidVLong
	}
	// the tenth byte only carries the sign bit
	if b, err = in.Reader.ReadByte(); err != nil {
		return 0, err
	}
	if b > 1 {
		return 0, errors.New("Invalid vLong detected (more than 64 bits)")
	}
	return n | int64(b)<<63, nil
}

func (in *DataInputImpl) ReadString() (s string, err error) {
	length, err := in.ReadVInt()
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", errors.New("Invalid string length")
	}
	bytes := make([]byte, length)
	if err = in.Reader.ReadBytes(bytes); err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (in *DataInputImpl) ReadStringStringMap() (m map[string]string, err error) {
	count, err := in.ReadInt()
	if err != nil {
		return nil, err
	}
	m = make(map[string]string)
	for i := int32(0); i < count; i++ {
		key, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		value, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		m[key] = value
	}
	return m, nil
}

func (in *DataInputImpl) ReadStringSet() (s map[string]bool, err error) {
	count, err := in.ReadInt()
	if err != nil {
		return nil, err
	}
	s = make(map[string]bool)
	for i := int32(0); i < count; i++ {
		key, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		s[key] = true
	}
	return s, nil
}

/*
Skip over numBytes bytes. The contract on this method is that it
should have the same behavior as reading the same number of bytes
into a buffer and discarding its content. Negative values of numBytes
are not supported.
*/
func (in *DataInputImpl) SkipBytes(numBytes int64) (err error) {
	assert2(numBytes >= 0, "numBytes must be >= 0, got %v", numBytes)
	if in.skipBuffer == nil {
		in.skipBuffer = make([]byte, SKIP_BUFFER_SIZE)
	}
	var step int
	for skipped := int64(0); skipped < numBytes; {
		step = int(numBytes - skipped)
		if SKIP_BUFFER_SIZE < step {
			step = SKIP_BUFFER_SIZE
		}
		if err = in.Reader.ReadBytes(in.skipBuffer[:step]); err != nil {
			return
		}
		skipped += int64(step)
	}
	return nil
}
