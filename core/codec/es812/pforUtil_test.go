package es812

import (
	"math/rand"
	"testing"
	"time"

	"github.com/ironsweet/esengine/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeBlocks(t *testing.T, blocks ...[]int64) []byte {
	buf := make([]byte, len(blocks)*(MAX_ENCODED_SIZE+32))
	out := store.NewByteArrayDataOutput(buf)
	pfor := NewPForUtil()
	for _, block := range blocks {
		// Encode may modify its input
		require.NoError(t, pfor.Encode(append([]int64(nil), block...), out))
	}
	return buf[:out.Position()]
}

func randomBlock(rnd *rand.Rand, bitsPerValue, numExceptions int) []int64 {
	block := make([]int64, BLOCK_SIZE)
	for i := range block {
		block[i] = rnd.Int63n(int64(1) << uint(bitsPerValue))
	}
	for i := 0; i < numExceptions; i++ {
		block[rnd.Intn(BLOCK_SIZE)] = int64(1)<<uint(bitsPerValue) + rnd.Int63n(int64(1)<<uint(bitsPerValue+4))
	}
	return block
}

func TestPForRoundTrip(t *testing.T) {
	seed := time.Now().UnixNano()
	t.Logf("seed=%v", seed)
	rnd := rand.New(rand.NewSource(seed))

	var blocks [][]int64
	for bpv := 1; bpv <= 26; bpv++ {
		for _, numExceptions := range []int{0, 1, 3, MAX_EXCEPTIONS, 20} {
			blocks = append(blocks, randomBlock(rnd, bpv, numExceptions))
		}
	}
	data := encodeBlocks(t, blocks...)

	in := store.NewByteArrayDataInput(data)
	pfor := NewPForUtil()
	values := make([]int64, BLOCK_SIZE)
	for i, block := range blocks {
		require.NoError(t, pfor.Decode(in, values))
		require.Equal(t, block, values, "block %v", i)
	}
	assert.True(t, in.EOF())
}

func TestPForExceptionsKeepBodyNarrow(t *testing.T) {
	block := make([]int64, BLOCK_SIZE)
	for i := range block {
		block[i] = int64(i % 4)
	}
	block[10], block[77] = 1000, 513
	data := encodeBlocks(t, block)

	// two exceptions, a 2 bit body and (index, high bits) per exception
	assert.Equal(t, byte(2<<5|2), data[0])
	assert.Len(t, data, 1+NumBytes(2)+2*2)

	values := make([]int64, BLOCK_SIZE)
	require.NoError(t, NewPForUtil().Decode(store.NewByteArrayDataInput(data), values))
	assert.Equal(t, block, values)
}

func TestPForAllEqual(t *testing.T) {
	block := make([]int64, BLOCK_SIZE)
	for i := range block {
		block[i] = 200
	}
	data := encodeBlocks(t, block)
	// zero width token, then the value as VLong
	assert.Equal(t, []byte{0, 0xc8, 0x01}, data)

	// too wide to be written as a single value
	for i := range block {
		block[i] = 300
	}
	data = encodeBlocks(t, block)
	assert.Equal(t, byte(9), data[0])
	assert.Len(t, data, 1+NumBytes(9))

	values := make([]int64, BLOCK_SIZE)
	require.NoError(t, NewPForUtil().Decode(store.NewByteArrayDataInput(data), values))
	assert.Equal(t, block, values)
}

func TestPForAllEqualWithExceptions(t *testing.T) {
	block := make([]int64, BLOCK_SIZE)
	for i := range block {
		block[i] = 1
	}
	block[5] = 3
	data := encodeBlocks(t, block)
	assert.Equal(t, []byte{1 << 5, 1, 5, 2}, data)

	values := make([]int64, BLOCK_SIZE)
	require.NoError(t, NewPForUtil().Decode(store.NewByteArrayDataInput(data), values))
	assert.Equal(t, block, values)
}

func TestPForSkip(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	allOnes := make([]int64, BLOCK_SIZE)
	for i := range allOnes {
		allOnes[i] = 1
	}
	blocks := [][]int64{
		randomBlock(rnd, 5, 2),
		randomBlock(rnd, 11, 0),
		allOnes,
		randomBlock(rnd, 3, MAX_EXCEPTIONS),
	}
	data := encodeBlocks(t, blocks...)

	in := store.NewByteArrayDataInput(data)
	pfor := NewPForUtil()
	values := make([]int64, BLOCK_SIZE)
	require.NoError(t, pfor.Decode(in, values))
	assert.Equal(t, blocks[0], values)
	require.NoError(t, pfor.Skip(in))
	require.NoError(t, pfor.Skip(in))
	require.NoError(t, pfor.Decode(in, values))
	assert.Equal(t, blocks[3], values)
	assert.True(t, in.EOF())
}

func TestForUtilRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for bpv := 1; bpv <= MAX_BITS_PER_VALUE; bpv++ {
		block := randomBlock(rnd, bpv, 0)
		buf := make([]byte, MAX_ENCODED_SIZE)
		out := store.NewByteArrayDataOutput(buf)
		u := NewForUtil()
		require.NoError(t, u.Encode(block, bpv, out))
		require.Equal(t, NumBytes(bpv), out.Position())

		values := make([]int64, BLOCK_SIZE)
		require.NoError(t, u.Decode(bpv, store.NewByteArrayDataInput(buf[:out.Position()]), values))
		require.Equal(t, block, values, "bpv=%v", bpv)
	}
}
