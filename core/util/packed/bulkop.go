package packed

// util/packed/BulkOperationPacked.java

// Non-specialized bulk operation for the byte-aligned packed format.
type BulkOperationPacked struct {
	bitsPerValue int
	mask         int64
}

var packedBulkOps = func() (ops [65]*BulkOperationPacked) {
	for bpv := range ops {
		ops[bpv] = &BulkOperationPacked{bitsPerValue: bpv, mask: maskFor(bpv)}
	}
	return
}()

func maskFor(bitsPerValue int) int64 {
	if bitsPerValue == 64 {
		return ^int64(0)
	}
	return (int64(1) << uint(bitsPerValue)) - 1
}

func newBulkOperationPacked(bitsPerValue int) *BulkOperationPacked {
	assert2(bitsPerValue >= 0 && bitsPerValue <= 64, "illegal bitsPerValue: %v", bitsPerValue)
	return packedBulkOps[bitsPerValue]
}

func (p *BulkOperationPacked) encodeLongToByte(values []int64, blocks []byte) {
	if p.bitsPerValue == 0 {
		return
	}
	var nextBlock int = 0
	var bitsLeft int = 8
	blocksOffset := 0
	for _, v := range values {
		assertTrue(UnsignedBitsRequired(v) <= p.bitsPerValue)
		if p.bitsPerValue < bitsLeft { // just buffer
			nextBlock |= int(v << uint(bitsLeft-p.bitsPerValue))
			bitsLeft -= p.bitsPerValue
		} else { // flush as many blocks as possible
			bits := uint(p.bitsPerValue - bitsLeft)
			blocks[blocksOffset] = byte(nextBlock | int(uint64(v)>>bits))
			blocksOffset++
			for bits >= 8 {
				bits -= 8
				blocks[blocksOffset] = byte(uint64(v) >> bits)
				blocksOffset++
			}
			// then buffer
			bitsLeft = int(8 - bits)
			nextBlock = int((v & ((1 << bits) - 1)) << uint(bitsLeft))
		}
	}
	if bitsLeft != 8 {
		blocks[blocksOffset] = byte(nextBlock)
	}
}

func (p *BulkOperationPacked) decodeByteToLong(blocks []byte, values []int64) {
	if p.bitsPerValue == 0 {
		for i := range values {
			values[i] = 0
		}
		return
	}
	var nextValue int64 = 0
	bitsLeft := p.bitsPerValue
	valuesOffset := 0
	for i, limit := 0, ByteCount(len(values), p.bitsPerValue); i < limit; i++ {
		bytes := int64(blocks[i])
		if bitsLeft > 8 {
			bitsLeft -= 8
			nextValue |= bytes << uint(bitsLeft)
			continue
		}
		bits := uint(8 - bitsLeft)
		values[valuesOffset] = nextValue | int64(uint64(bytes)>>bits)
		valuesOffset++
		for bits >= uint(p.bitsPerValue) && valuesOffset < len(values) {
			bits -= uint(p.bitsPerValue)
			values[valuesOffset] = int64(uint64(bytes)>>bits) & p.mask
			valuesOffset++
		}
		if valuesOffset == len(values) {
			return
		}
		bitsLeft = p.bitsPerValue - int(bits)
		nextValue = (bytes & ((1 << bits) - 1)) << uint(bitsLeft)
	}
}
