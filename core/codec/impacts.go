package codec

import (
	"fmt"
	"sort"
	"strings"
)

// index/Impact.java

// Per-document scoring factors.
type Impact struct {
	// Term frequency of the term in the document.
	Freq int
	// Norm factor of the document, compared as an unsigned long.
	Norm int64
}

func (i Impact) String() string {
	return fmt.Sprintf("{freq=%v,norm=%v}", i.Freq, i.Norm)
}

// Orders by increasing freq, then decreasing unsigned norm: a later
// entry in this order is at least as competitive on the freq axis.
func compareImpacts(a, b Impact) int {
	switch {
	case a.Freq < b.Freq:
		return -1
	case a.Freq > b.Freq:
		return 1
	}
	return -compareUnsigned(a.Norm, b.Norm)
}

func compareUnsigned(a, b int64) int {
	ua, ub := uint64(a), uint64(b)
	switch {
	case ua < ub:
		return -1
	case ua > ub:
		return 1
	}
	return 0
}

// codecs/CompetitiveImpactAccumulator.java

/*
Accumulates the (freq, norm) pairs that may produce competitive
scores. A pair is competitive unless another pair has a freq that is
at least as high and a norm that is at most as high.
*/
type CompetitiveImpactAccumulator struct {
	// We speed up accumulation for common norm values with this array
	// that maps norm values in -128..127 to the maximum frequency
	// observed for these norm values.
	maxFreqs [256]int
	// For rarer norm values, sorted by compareImpacts and reduced to
	// competitive entries only.
	otherFreqNormPairs []Impact
}

func NewCompetitiveImpactAccumulator() *CompetitiveImpactAccumulator {
	return &CompetitiveImpactAccumulator{}
}

// Reset to the same state it was in after creation.
func (acc *CompetitiveImpactAccumulator) Clear() {
	acc.maxFreqs = [256]int{}
	acc.otherFreqNormPairs = acc.otherFreqNormPairs[:0]
}

/*
Accumulate a (freq, norm) pair, updating this structure if there is
no equivalent or more competitive entry already.
*/
func (acc *CompetitiveImpactAccumulator) Add(freq int, norm int64) {
	if norm >= -128 && norm <= 127 {
		index := int(byte(norm))
		if freq > acc.maxFreqs[index] {
			acc.maxFreqs[index] = freq
		}
	} else {
		acc.otherFreqNormPairs = addImpact(Impact{freq, norm}, acc.otherFreqNormPairs)
	}
}

// Merge acc into this.
func (acc *CompetitiveImpactAccumulator) AddAll(other *CompetitiveImpactAccumulator) {
	for i, freq := range other.maxFreqs {
		if freq > acc.maxFreqs[i] {
			acc.maxFreqs[i] = freq
		}
	}
	for _, entry := range other.otherFreqNormPairs {
		acc.otherFreqNormPairs = addImpact(entry, acc.otherFreqNormPairs)
	}
}

/*
Get the set of competitive freq and norm pairs, ordered by increasing
freq and norm.
*/
func (acc *CompetitiveImpactAccumulator) CompetitiveFreqNormPairs() []Impact {
	var impacts []Impact
	maxFreqForLowerNorms := 0
	for i, maxFreq := range acc.maxFreqs {
		if maxFreq > maxFreqForLowerNorms {
			impacts = append(impacts, Impact{maxFreq, int64(int8(i))})
			maxFreqForLowerNorms = maxFreq
		}
	}
	if len(acc.otherFreqNormPairs) == 0 {
		// cheap path: no norms outside of the byte range
		return impacts
	}
	pairs := append([]Impact(nil), acc.otherFreqNormPairs...)
	for _, impact := range impacts {
		pairs = addImpact(impact, pairs)
	}
	return pairs
}

func (acc *CompetitiveImpactAccumulator) String() string {
	var parts []string
	for _, impact := range acc.CompetitiveFreqNormPairs() {
		parts = append(parts, impact.String())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func addImpact(newEntry Impact, pairs []Impact) []Impact {
	// ceiling: the least entry that is >= newEntry
	at := sort.Search(len(pairs), func(i int) bool {
		return compareImpacts(pairs[i], newEntry) >= 0
	})
	if at < len(pairs) && compareUnsigned(pairs[at].Norm, newEntry.Norm) <= 0 {
		// we already have this entry or more competitive entries
		return pairs
	}
	// drop the entries that newEntry makes non-competitive
	from := at
	for from > 0 && compareUnsigned(pairs[from-1].Norm, newEntry.Norm) >= 0 {
		from--
	}
	tail := append([]Impact{newEntry}, pairs[at:]...)
	return append(pairs[:from], tail...)
}
