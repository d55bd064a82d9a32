package packed

import (
	"fmt"
	"math"
	"math/bits"
)

// util/packed/PackedInts.java

/*
Simplistic compression for arrays of unsigned int64 values. Each value
is >= 0 and <= a specified maximum value. The values are stored as
packed ints, with each value consuming a fixed number of bits.
*/

/*
Returns how many bits are required to hold values up to and including maxValue
NOTE: This method returns at least 1.
*/
func BitsRequired(maxValue int64) int {
	assert2(maxValue >= 0, "maxValue must be non-negative (got: %v)", maxValue)
	return UnsignedBitsRequired(maxValue)
}

/*
Returns how many bits are required to store bits, interpreted as an
unsigned value.
NOTE: This method returns at least 1.
*/
func UnsignedBitsRequired(v int64) int {
	if v == 0 {
		return 1
	}
	return 64 - bits.LeadingZeros64(uint64(v))
}

// Calculate the maximum unsigned long that can be expressed with the given number of bits
func MaxValue(bitsPerValue int) int64 {
	if bitsPerValue == 64 {
		return math.MaxInt64
	}
	return (1 << uint64(bitsPerValue)) - 1
}

// Computes how many bytes are needed to store valueCount values of
// size bitsPerValue in the byte-aligned packed format.
func ByteCount(valueCount, bitsPerValue int) int {
	assert2(bitsPerValue >= 0 && bitsPerValue <= 64, "illegal bitsPerValue: %v", bitsPerValue)
	return (valueCount*bitsPerValue + 7) >> 3
}

// Pack writes len(values) values of bitsPerValue bits each into blocks,
// most significant bit first. blocks must hold at least
// ByteCount(len(values), bitsPerValue) bytes.
func Pack(values []int64, bitsPerValue int, blocks []byte) {
	newBulkOperationPacked(bitsPerValue).encodeLongToByte(values, blocks)
}

// Unpack is the inverse of Pack; it fills values from blocks.
func Unpack(blocks []byte, bitsPerValue int, values []int64) {
	newBulkOperationPacked(bitsPerValue).decodeByteToLong(blocks, values)
}

func assertTrue(ok bool) {
	assert2(ok, "assert fail")
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}
