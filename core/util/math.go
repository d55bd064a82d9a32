package util

// util/MathUtil.java

/* Returns x <= 0 ? 0 : floor(log(x) ? log(base)) */
func Log(x int64, base int) int {
	assert2(base > 1, "base must be > 1")
	ret := 0
	for x >= int64(base) {
		x /= int64(base)
		ret++
	}
	return ret
}

// util/BitUtil.java

// Same as ZigZagEncode but on 64-bit values.
func ZigZagEncode(l int64) int64 {
	return (l >> 63) ^ (l << 1)
}

// Decode a long previously encoded with ZigZagEncode().
func ZigZagDecode(l int64) int64 {
	return int64(uint64(l)>>1) ^ -(l & 1)
}
