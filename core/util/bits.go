package util

// util/Bits.java

// Interface for Bitset-like structures.
type Bits interface {
	// Returns the value of the bit with the specified index.
	At(index int) bool
	// Returns the number of bits in the set
	Length() int
}

// util/MutableBits.java

type MutableBits interface {
	Bits
	// Sets the bit specified by index to false.
	Clear(index int)
}
