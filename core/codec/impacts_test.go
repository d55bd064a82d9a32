package codec

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompetitiveImpactsBasics(t *testing.T) {
	acc := NewCompetitiveImpactAccumulator()
	assert.Empty(t, acc.CompetitiveFreqNormPairs())

	acc.Add(3, 5)
	assert.Equal(t, []Impact{{3, 5}}, acc.CompetitiveFreqNormPairs())

	acc.Add(6, 11)
	assert.Equal(t, []Impact{{3, 5}, {6, 11}}, acc.CompetitiveFreqNormPairs())

	// dominated by (3,5)
	acc.Add(2, 7)
	assert.Equal(t, []Impact{{3, 5}, {6, 11}}, acc.CompetitiveFreqNormPairs())

	// dominates (3,5)
	acc.Add(4, 5)
	assert.Equal(t, []Impact{{4, 5}, {6, 11}}, acc.CompetitiveFreqNormPairs())

	acc.Add(6, 2)
	assert.Equal(t, []Impact{{6, 2}}, acc.CompetitiveFreqNormPairs())

	acc.Clear()
	assert.Empty(t, acc.CompetitiveFreqNormPairs())
}

func TestCompetitiveImpactsExtremeNorms(t *testing.T) {
	acc := NewCompetitiveImpactAccumulator()
	acc.Add(3, 5)
	acc.Add(10, 10000)
	acc.Add(5, 200)
	// negative norms compare as large unsigned values
	acc.Add(20, -100)
	acc.Add(30, -1)
	assert.Equal(t, []Impact{{3, 5}, {5, 200}, {10, 10000}, {20, -100}, {30, -1}},
		acc.CompetitiveFreqNormPairs())

	acc.Add(25, 300)
	assert.Equal(t, []Impact{{3, 5}, {5, 200}, {25, 300}, {30, -1}},
		acc.CompetitiveFreqNormPairs())

	// a huge unsigned norm never beats a smaller one with the same freq
	other := NewCompetitiveImpactAccumulator()
	other.Add(7, math.MinInt64)
	other.Add(7, 1000)
	assert.Equal(t, []Impact{{7, 1000}}, other.CompetitiveFreqNormPairs())
}

func TestCompetitiveImpactsAddAll(t *testing.T) {
	seed := time.Now().UnixNano()
	t.Logf("seed=%v", seed)
	rnd := rand.New(rand.NewSource(seed))

	all := NewCompetitiveImpactAccumulator()
	merged := NewCompetitiveImpactAccumulator()
	var naive []Impact
	for block := 0; block < 10; block++ {
		acc := NewCompetitiveImpactAccumulator()
		for i := 0; i < 50; i++ {
			freq := 1 + rnd.Intn(40)
			norm := int64(1 + rnd.Intn(1000))
			acc.Add(freq, norm)
			all.Add(freq, norm)
			naive = append(naive, Impact{freq, norm})
		}
		merged.AddAll(acc)
	}
	got := all.CompetitiveFreqNormPairs()
	assert.Equal(t, got, merged.CompetitiveFreqNormPairs())

	// every kept pair is undominated, every dropped pair is dominated
	dominated := func(x Impact) bool {
		for _, y := range naive {
			if y != x && y.Freq >= x.Freq && y.Norm <= x.Norm {
				return true
			}
		}
		return false
	}
	for i, impact := range got {
		require.False(t, dominated(impact), "%v", impact)
		if i > 0 {
			require.Greater(t, impact.Freq, got[i-1].Freq)
			require.Greater(t, impact.Norm, got[i-1].Norm)
		}
	}
	for _, x := range naive {
		if !dominated(x) {
			assert.Contains(t, got, x)
		}
	}
}
