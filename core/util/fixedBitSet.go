package util

import (
	"math/bits"
)

// util/FixedBitSet.java

/*
BitSet of fixed length (numBits), backed by a []uint64, accessed with
an int index. Unlike a map based set, this bit set does not
auto-expand.
*/
type FixedBitSet struct {
	words   []uint64
	numBits int
}

// returns the number of 64 bit words it would take to hold numBits
func bits2words(numBits int) int {
	return ((numBits - 1) >> 6) + 1
}

func NewFixedBitSetOf(numBits int) *FixedBitSet {
	assert2(numBits >= 0, "numBits must be >= 0 (got %v)", numBits)
	n := 0
	if numBits > 0 {
		n = bits2words(numBits)
	}
	return &FixedBitSet{words: make([]uint64, n), numBits: numBits}
}

func (b *FixedBitSet) Length() int {
	return b.numBits
}

/*
Returns number of set bits. NOTE: this visits every word in the
backing slice, and the result is not internaly cached!
*/
func (b *FixedBitSet) Cardinality() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

func (b *FixedBitSet) At(index int) bool {
	assert2(index >= 0 && index < b.numBits, "index=%v, numBits=%v", index, b.numBits)
	return b.words[index>>6]&(uint64(1)<<uint(index&63)) != 0
}

func (b *FixedBitSet) Set(index int) {
	assert2(index >= 0 && index < b.numBits, "index=%v, numBits=%v", index, b.numBits)
	b.words[index>>6] |= uint64(1) << uint(index&63)
}

func (b *FixedBitSet) Clear(index int) {
	assert2(index >= 0 && index < b.numBits, "index=%v, numBits=%v", index, b.numBits)
	b.words[index>>6] &^= uint64(1) << uint(index&63)
}

/*
Returns the index of the first set bit starting at the index
specified. -1 is returned if there are no more set bits.
*/
func (b *FixedBitSet) NextSetBit(index int) int {
	assert2(index >= 0 && index < b.numBits, "index=%v, numBits=%v", index, b.numBits)
	i := index >> 6
	word := b.words[i] >> uint(index&63) // skip all the bits to the right of index
	if word != 0 {
		return index + bits.TrailingZeros64(word)
	}
	for i++; i < len(b.words); i++ {
		if word = b.words[i]; word != 0 {
			return (i << 6) + bits.TrailingZeros64(word)
		}
	}
	return -1
}
