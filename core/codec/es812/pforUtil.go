package es812

import (
	"sort"

	"github.com/ironsweet/esengine/core/util"
	"github.com/ironsweet/esengine/core/util/packed"
)

// index/codec/postings/PForUtil.java

// BlockCodec encodes full blocks of BLOCK_SIZE non-negative values.
type BlockCodec interface {
	// Encodes values[:BLOCK_SIZE]. The content of values is undefined
	// afterwards.
	Encode(values []int64, out util.DataOutput) error
	// Decodes one block into values[:BLOCK_SIZE].
	Decode(in util.DataInput, values []int64) error
	// Consumes one block without decoding it.
	Skip(in util.DataInput) error
}

// at most 7 exceptions per block; the token keeps 3 bits for them
const MAX_EXCEPTIONS = 7

/*
Utility class to encode sequences of 128 small positive integers.

The block starts with a token byte: numExceptions<<5 | bitsPerValue.
Values whose bit width exceeds bitsPerValue (at most MAX_EXCEPTIONS of
them, and at most 8 bits wider) are stored masked to bitsPerValue, and
their high bits follow the packed body as (index, high bits) byte
pairs. A block whose masked values are all equal and whose widest
value fits in a byte is written as a zero width token followed by the
common value as VLong.
*/
type PForUtil struct {
	forUtil    *ForUtil
	exceptions []byte
	top        []int64
	skipBuffer []byte
}

var _ BlockCodec = (*PForUtil)(nil)

func NewPForUtil() *PForUtil {
	return &PForUtil{
		forUtil:    NewForUtil(),
		exceptions: make([]byte, MAX_EXCEPTIONS*2),
		top:        make([]int64, BLOCK_SIZE),
		skipBuffer: make([]byte, MAX_ENCODED_SIZE),
	}
}

func allEqual(values []int64) bool {
	for _, v := range values[1:BLOCK_SIZE] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func (u *PForUtil) Encode(values []int64, out util.DataOutput) error {
	// the MAX_EXCEPTIONS+1 largest values, smallest first
	copy(u.top, values[:BLOCK_SIZE])
	sort.Slice(u.top, func(i, j int) bool { return u.top[i] < u.top[j] })
	topValues := u.top[BLOCK_SIZE-MAX_EXCEPTIONS-1:]
	for _, v := range topValues {
		assert2(v >= 0, "negative value in block: %v", v)
	}

	maxBitsRequired := packed.BitsRequired(topValues[MAX_EXCEPTIONS])
	// we store at most 8 bits per exception
	patchedBitsRequired := packed.BitsRequired(topValues[0])
	if maxBitsRequired-8 > patchedBitsRequired {
		patchedBitsRequired = maxBitsRequired - 8
	}
	assert2(patchedBitsRequired <= MAX_BITS_PER_VALUE, "value too large: %v", topValues[MAX_EXCEPTIONS])

	maxUnpatchedValue := int64(1)<<uint(patchedBitsRequired) - 1
	numExceptions := 0
	for _, v := range topValues[1:] {
		if v > maxUnpatchedValue {
			numExceptions++
		}
	}
	exceptions := u.exceptions[:numExceptions*2]
	if numExceptions > 0 {
		exceptionCount := 0
		for i, v := range values[:BLOCK_SIZE] {
			if v > maxUnpatchedValue {
				exceptions[exceptionCount*2] = byte(i)
				exceptions[exceptionCount*2+1] = byte(v >> uint(patchedBitsRequired))
				values[i] &= maxUnpatchedValue
				exceptionCount++
			}
		}
		assertTrue(exceptionCount == numExceptions)
	}

	if allEqual(values) && maxBitsRequired <= 8 {
		for i := 0; i < numExceptions; i++ {
			exceptions[2*i+1] <<= uint(patchedBitsRequired)
		}
		if err := out.WriteByte(byte(numExceptions << 5)); err != nil {
			return err
		}
		if err := out.WriteVLong(values[0]); err != nil {
			return err
		}
	} else {
		token := numExceptions<<5 | patchedBitsRequired
		if err := out.WriteByte(byte(token)); err != nil {
			return err
		}
		if err := u.forUtil.Encode(values, patchedBitsRequired, out); err != nil {
			return err
		}
	}
	return out.WriteBytes(exceptions)
}

func (u *PForUtil) Decode(in util.DataInput, values []int64) error {
	token, err := in.ReadByte()
	if err != nil {
		return err
	}
	bitsPerValue := int(token & 0x1f)
	numExceptions := int(token >> 5)
	if bitsPerValue == 0 {
		v, err := in.ReadVLong()
		if err != nil {
			return err
		}
		for i := range values[:BLOCK_SIZE] {
			values[i] = v
		}
	} else if err = u.forUtil.Decode(bitsPerValue, in, values); err != nil {
		return err
	}
	exceptions := u.exceptions[:numExceptions*2]
	if err = in.ReadBytes(exceptions); err != nil {
		return err
	}
	for i := 0; i < numExceptions; i++ {
		values[exceptions[2*i]] |= int64(exceptions[2*i+1]) << uint(bitsPerValue)
	}
	return nil
}

func (u *PForUtil) Skip(in util.DataInput) error {
	token, err := in.ReadByte()
	if err != nil {
		return err
	}
	bitsPerValue := int(token & 0x1f)
	numExceptions := int(token >> 5)
	if bitsPerValue == 0 {
		if _, err = in.ReadVLong(); err != nil {
			return err
		}
		return in.ReadBytes(u.skipBuffer[:numExceptions*2])
	}
	return in.ReadBytes(u.skipBuffer[:NumBytes(bitsPerValue)+numExceptions*2])
}
