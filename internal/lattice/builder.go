// Package lattice calibrates an n-state one-step growth-rate lattice from
// historical log returns: the sample is discretized into n ordered bins,
// each bin's mean growth rate becomes a multiplicative movement factor, and
// bin frequencies estimate the one-step state probabilities.
package lattice

import (
	"fmt"
	"math"
	"sort"

	"github.com/mvikraman/quantbench/pkg/models"
)

// Method selects how bin edges are constructed.
type Method string

const (
	// Quantile places edges at equally spaced sample quantiles, giving
	// bins of (near) equal occupancy.
	Quantile Method = "quantile"

	// EqualWidth places edges uniformly across [min, max] of the sample.
	EqualWidth Method = "equal-width"
)

var (
	// ErrEmptyInput is returned when no finite growth rates remain after
	// cleaning.
	ErrEmptyInput = fmt.Errorf("no finite growth-rate samples")

	// ErrInvalidStateCount is returned for lattices with fewer than two
	// states.
	ErrInvalidStateCount = fmt.Errorf("state count must be at least 2")

	// ErrUnknownMethod is returned for an unrecognized edge method.
	ErrUnknownMethod = fmt.Errorf("unknown edge construction method")
)

// Clean returns the finite entries of the sample, preserving order.
// Missing observations arrive as NaN and are discarded alongside infinities.
func Clean(rates []float64) []float64 {
	out := make([]float64, 0, len(rates))
	for _, r := range rates {
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			out = append(out, r)
		}
	}
	return out
}

// Build calibrates an n-state lattice from the growth-rate sample using the
// given edge method and step size dt. A non-positive dt defaults to 1.
//
// The result is deterministic: identical inputs produce an identical
// summary.
func Build(rates []float64, n int, dt float64, method Method) (models.LatticeSummary, error) {
	if n < 2 {
		return models.LatticeSummary{}, ErrInvalidStateCount
	}
	if dt <= 0 {
		dt = 1.0
	}

	clean := Clean(rates)
	if len(clean) == 0 {
		return models.LatticeSummary{}, ErrEmptyInput
	}

	var edges []float64
	switch method {
	case Quantile:
		edges = quantileEdges(clean, n)
	case EqualWidth:
		edges = widthEdges(clean, n)
	default:
		return models.LatticeSummary{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	counts := make([]int, n)
	factorSum := make([]float64, n)
	for _, mu := range clean {
		k := binIndex(edges, mu, n)
		counts[k-1]++
		factorSum[k-1] += math.Exp(mu * dt)
	}

	avg := make([]float64, n)
	freq := make([]float64, n)
	labels := make([]string, n)
	for j := 0; j < n; j++ {
		if counts[j] > 0 {
			avg[j] = factorSum[j] / float64(counts[j])
		} else {
			avg[j] = math.NaN()
		}
		freq[j] = float64(counts[j]) / float64(len(clean))
		labels[j] = fmt.Sprintf("S%d", j+1)
	}

	return models.LatticeSummary{
		Edges:     edges,
		AvgFactor: avg,
		Freq:      freq,
		Counts:    counts,
		Labels:    labels,
		Dt:        dt,
		Method:    string(method),
	}, nil
}

// quantileEdges places n+1 edges at the 0, 1/n, …, 1 sample quantiles.
// Tied edges are nudged to the next representable value above their
// predecessor so the boundaries stay strictly increasing.
func quantileEdges(sample []float64, n int) []float64 {
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	edges := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		edges[i] = quantile(sorted, float64(i)/float64(n))
	}
	for i := 1; i <= n; i++ {
		if edges[i] <= edges[i-1] {
			edges[i] = math.Nextafter(edges[i-1], math.Inf(1))
		}
	}
	return edges
}

// quantile returns the q-quantile of a sorted sample using linear
// interpolation between the two nearest order statistics.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// widthEdges places n+1 edges uniformly across [min, max]. A constant
// sample gets a small symmetric spread so the bins keep non-zero width.
func widthEdges(sample []float64, n int) []float64 {
	lo, hi := sample[0], sample[0]
	for _, v := range sample[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if lo == hi {
		spread := math.Abs(lo) * 1e-6
		if spread == 0 {
			spread = 1e-6
		}
		lo -= spread
		hi += spread
	}

	edges := make([]float64, n+1)
	step := (hi - lo) / float64(n)
	for i := 0; i <= n; i++ {
		edges[i] = lo + float64(i)*step
	}
	edges[n] = hi // avoid drift on the closed upper boundary
	return edges
}

// binIndex returns the 1-indexed bin for a value: the greatest edge ≤ the
// value, clamped into [1, n]. The clamp makes the last bin closed, so the
// sample maximum lands in bin n.
func binIndex(edges []float64, v float64, n int) int {
	idx := sort.SearchFloat64s(edges, v)
	if idx < len(edges) && edges[idx] == v {
		idx++
	}
	if idx < 1 {
		return 1
	}
	if idx > n {
		return n
	}
	return idx
}
