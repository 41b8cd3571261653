package tree

import (
	"fmt"
	"math"

	"github.com/mvikraman/quantbench/pkg/models"
)

// ErrInvalidTreeInput is returned for a non-positive start price, a negative
// depth, or a lattice with no occupied states.
var ErrInvalidTreeInput = fmt.Errorf("tree construction needs a positive start price and an occupied lattice")

// BuildFromLattice constructs a recombining price tree of the given depth
// from a calibrated lattice. Each occupied lattice state contributes one
// movement factor with its observed frequency as the one-step probability.
//
// Level t holds one node per way of distributing t steps across the states;
// its price is the start price times the product of the chosen factors, and
// its probability is the multinomial probability of that distribution, so
// probabilities at each level sum to 1.
func BuildFromLattice(startPrice float64, lat models.LatticeSummary, steps int) (*Model, error) {
	if startPrice <= 0 || steps < 0 {
		return nil, ErrInvalidTreeInput
	}

	// Empty states carry NaN factors and zero frequency; only occupied
	// states move the price.
	var factors, probs []float64
	total := 0
	for j, c := range lat.Counts {
		if c > 0 {
			factors = append(factors, lat.AvgFactor[j])
			probs = append(probs, float64(c))
			total += c
		}
	}
	if total == 0 {
		return nil, ErrInvalidTreeInput
	}
	for j := range probs {
		probs[j] /= float64(total)
	}

	m := NewModel()
	m.Add(0, startPrice, 1.0)

	for t := 1; t <= steps; t++ {
		for _, counts := range compositions(t, len(factors)) {
			price := startPrice
			prob := multinomial(t, counts)
			for j, k := range counts {
				price *= math.Pow(factors[j], float64(k))
				prob *= math.Pow(probs[j], float64(k))
			}
			m.Add(t, price, prob)
		}
	}
	return m, nil
}

// compositions enumerates all ways of writing t as an ordered sum of n
// non-negative integers.
func compositions(t, n int) [][]int {
	if n == 1 {
		return [][]int{{t}}
	}
	var out [][]int
	for first := t; first >= 0; first-- {
		for _, rest := range compositions(t-first, n-1) {
			c := make([]int, 0, n)
			c = append(c, first)
			c = append(c, rest...)
			out = append(out, c)
		}
	}
	return out
}

// multinomial returns t! / (k1!·k2!·…·kn!) computed in log space.
func multinomial(t int, counts []int) float64 {
	lg, _ := math.Lgamma(float64(t) + 1)
	for _, k := range counts {
		l, _ := math.Lgamma(float64(k) + 1)
		lg -= l
	}
	return math.Exp(lg)
}
