package sampling

import (
	"math/rand"
	"sort"
)

// WeightedIndex selects an index with probability proportional to its weight.
// frac is a uniform random value in [0, 1). Non-positive weights are never
// selected. Returns -1 if no weight is positive.
func WeightedIndex(weights []float64, frac float64) int {
	var total float64
	last := -1
	for i, w := range weights {
		if w > 0 {
			total += w
			last = i
		}
	}
	if last < 0 {
		return -1
	}

	target := frac * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		target -= w
		if target <= 0 {
			return i
		}
	}
	// Rounding left a positive remainder.
	return last
}

// SplitFraction locates frac within the concatenation of parts, where parts
// holds each part's weight total. It returns the selected part and the
// fraction to pass to WeightedIndex within that part, so that the two-level
// draw selects the same element as one WeightedIndex over all weights.
// Returns -1 if no part total is positive.
func SplitFraction(parts []float64, frac float64) (int, float64) {
	var total float64
	last := -1
	for p, w := range parts {
		if w > 0 {
			total += w
			last = p
		}
	}
	if last < 0 {
		return -1, 0
	}

	target := frac * total
	for p, w := range parts {
		if w <= 0 {
			continue
		}
		if target-w <= 0 {
			return p, target / w
		}
		target -= w
	}
	return last, 1
}

// Cumulative answers repeated weighted draws over fixed weights in
// O(log n) each, with the same selection rule as WeightedIndex.
type Cumulative struct {
	prefix []float64
}

// NewCumulative builds the prefix sums of weights. Non-positive weights
// contribute nothing.
func NewCumulative(weights []float64) *Cumulative {
	prefix := make([]float64, len(weights))
	var sum float64
	for i, w := range weights {
		if w > 0 {
			sum += w
		}
		prefix[i] = sum
	}
	return &Cumulative{prefix: prefix}
}

// Total returns the sum of the positive weights.
func (c *Cumulative) Total() float64 {
	if len(c.prefix) == 0 {
		return 0
	}
	return c.prefix[len(c.prefix)-1]
}

// Pick returns the first index whose running sum reaches frac * Total,
// skipping zero-weight entries. Returns -1 if Total is zero.
func (c *Cumulative) Pick(frac float64) int {
	total := c.Total()
	if total <= 0 {
		return -1
	}
	target := frac * total
	n := len(c.prefix)
	i := sort.Search(n, func(i int) bool { return c.prefix[i] >= target })
	for i < n && c.weight(i) <= 0 {
		i++
	}
	if i == n {
		// Rounding overshot; fall back to the last positive weight.
		i = sort.SearchFloat64s(c.prefix, total)
	}
	return i
}

func (c *Cumulative) weight(i int) float64 {
	if i == 0 {
		return c.prefix[0]
	}
	return c.prefix[i] - c.prefix[i-1]
}

// Multinomial distributes m independent draws over parts, each draw landing
// on part p with probability proportional to shares[p]. Parts with a
// non-positive share receive nothing.
func Multinomial(m int, shares []float64, rng *rand.Rand) []int {
	counts := make([]int, len(shares))
	if m <= 0 {
		return counts
	}
	cum := NewCumulative(shares)
	if cum.Total() <= 0 {
		return counts
	}
	for range m {
		counts[cum.Pick(rng.Float64())]++
	}
	return counts
}
