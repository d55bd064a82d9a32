package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* Ensure Oversize() gives linear amortized cost of realloc/copy */
func TestGrowth(t *testing.T) {
	var currentSize = 0
	var copyCost int64 = 0

	// Make sure it hits MAX_ARRAY_LENGTH, if we insist:
	for currentSize != MAX_ARRAY_LENGTH {
		nextSize := Oversize(1+currentSize, 8)
		require.Greater(t, nextSize, currentSize)
		if currentSize > 0 {
			copyCost += int64(currentSize)
			copyCostPerElement := float64(copyCost) / float64(currentSize)
			require.Less(t, copyCostPerElement, 10.0, "size %v", currentSize)
		}
		currentSize = nextSize
	}
}

func TestOversizeRounding(t *testing.T) {
	assert.Equal(t, 0, Oversize(0, 1))
	assert.Equal(t, 0, Oversize(1, 1)%8)
	assert.Equal(t, 0, Oversize(13, 2)%4)
	assert.Equal(t, 0, Oversize(13, 4)%2)
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "8.12", VERSION_LATEST.String())
	v, err := ParseVersion("8.11")
	require.NoError(t, err)
	assert.Equal(t, VERSION_8_11, v)
	assert.True(t, VERSION_LATEST.OnOrAfter(v))
	_, err = ParseVersion("8")
	assert.Error(t, err)
	_, err = ParseVersion("8.x")
	assert.Error(t, err)
}
