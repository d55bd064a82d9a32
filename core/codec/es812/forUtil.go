package es812

import (
	"github.com/ironsweet/esengine/core/util"
	"github.com/ironsweet/esengine/core/util/packed"
)

// index/codec/postings/ForUtil.java

/*
Encode all values in normal area with fixed bit width, which is
determined by the max value in this block. A block always holds
exactly BLOCK_SIZE values and occupies BLOCK_SIZE*bitsPerValue/8
bytes.
*/
type ForUtil struct {
	encoded []byte
}

func NewForUtil() *ForUtil {
	return &ForUtil{encoded: make([]byte, MAX_ENCODED_SIZE)}
}

const (
	// Upper limit of the number of bytes that might be required to
	// store BLOCK_SIZE encoded values.
	MAX_ENCODED_SIZE = BLOCK_SIZE * 4
	// Largest bit width a block may use; the token keeps 5 bits for it.
	MAX_BITS_PER_VALUE = 31
)

// Number of bytes required to encode a block with the given bit width.
func NumBytes(bitsPerValue int) int {
	return packed.ByteCount(BLOCK_SIZE, bitsPerValue)
}

// Encodes the first BLOCK_SIZE values with bitsPerValue bits each.
func (u *ForUtil) Encode(values []int64, bitsPerValue int, out util.DataOutput) error {
	assert2(bitsPerValue > 0 && bitsPerValue <= MAX_BITS_PER_VALUE, "invalid bitsPerValue: %v", bitsPerValue)
	n := NumBytes(bitsPerValue)
	packed.Pack(values[:BLOCK_SIZE], bitsPerValue, u.encoded[:n])
	return out.WriteBytes(u.encoded[:n])
}

// Decodes BLOCK_SIZE values of bitsPerValue bits each into values.
func (u *ForUtil) Decode(bitsPerValue int, in util.DataInput, values []int64) error {
	assert2(bitsPerValue > 0 && bitsPerValue <= MAX_BITS_PER_VALUE, "invalid bitsPerValue: %v", bitsPerValue)
	n := NumBytes(bitsPerValue)
	if err := in.ReadBytes(u.encoded[:n]); err != nil {
		return err
	}
	packed.Unpack(u.encoded[:n], bitsPerValue, values[:BLOCK_SIZE])
	return nil
}
