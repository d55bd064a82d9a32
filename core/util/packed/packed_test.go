package packed

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteCount(t *testing.T) {
	for _, valueCount := range []int{1, 7, 128, 1000} {
		for bpv := 1; bpv <= 64; bpv++ {
			byteCount := ByteCount(valueCount, bpv)
			assert.True(t, byteCount*8 >= valueCount*bpv, "valueCount=%v, bpv=%v", valueCount, bpv)
			assert.True(t, (byteCount-1)*8 < valueCount*bpv, "valueCount=%v, bpv=%v", valueCount, bpv)
		}
	}
	assert.Equal(t, 0, ByteCount(128, 0))
}

func TestMaxValue(t *testing.T) {
	assert.Equal(t, int64(0), MaxValue(0), "0 bit -> 0")
	assert.Equal(t, int64(1), MaxValue(1), "1 bit -> 1")
	assert.Equal(t, int64(3), MaxValue(2), "2 bits -> 3")
	assert.Equal(t, int64(0x7fffffffffffffff), MaxValue(64), "64 bits -> 0x7fffffffffffffff")
}

func TestUnsignedBitsRequired(t *testing.T) {
	assert.Equal(t, 64, UnsignedBitsRequired(-158146830731166066))
	assert.Equal(t, 1, UnsignedBitsRequired(0))
	assert.Equal(t, 1, UnsignedBitsRequired(1))
	assert.Equal(t, 2, UnsignedBitsRequired(2))
	assert.Equal(t, 8, UnsignedBitsRequired(255))
	assert.Equal(t, 9, UnsignedBitsRequired(256))
}

func TestBitsRequiredRejectsNegative(t *testing.T) {
	assert.Panics(t, func() { BitsRequired(-1) })
	assert.Equal(t, 63, BitsRequired(MaxValue(63)))
}

func TestPackUnpack(t *testing.T) {
	seed := time.Now().UnixNano()
	t.Logf("seed=%v", seed)
	r := rand.New(rand.NewSource(seed))

	for bpv := 1; bpv <= 64; bpv++ {
		for _, valueCount := range []int{1, 3, 127, 128} {
			values := make([]int64, valueCount)
			for i := range values {
				values[i] = r.Int63() & MaxValue(bpv)
				if bpv == 64 && r.Intn(2) == 0 {
					values[i] = -values[i] - 1
				}
			}
			blocks := make([]byte, ByteCount(valueCount, bpv))
			Pack(values, bpv, blocks)

			restored := make([]int64, valueCount)
			Unpack(blocks, bpv, restored)
			require.Equal(t, values, restored, "bpv=%v, valueCount=%v", bpv, valueCount)
		}
	}
}

func TestPackBitOrder(t *testing.T) {
	blocks := make([]byte, ByteCount(4, 4))
	Pack([]int64{1, 2, 3, 15}, 4, blocks)
	assert.Equal(t, []byte{0x12, 0x3f}, blocks)

	blocks = make([]byte, ByteCount(3, 3))
	Pack([]int64{7, 0, 5}, 3, blocks)
	// 111 000 10|1 (padding zeros)
	assert.Equal(t, []byte{0xe2, 0x80}, blocks)
}
