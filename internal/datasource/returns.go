package datasource

import (
	"math"
	"sort"

	"github.com/mvikraman/quantbench/pkg/models"
)

// LogReturns converts a closing-price series into one-step log returns,
// ln(pₜ/pₜ₋₁), ordered by date. Pairs involving a non-positive price yield
// NaN so the downstream lattice builder can discard them with the rest of
// its cleaning pass.
func LogReturns(points []models.PricePoint) []float64 {
	if len(points) < 2 {
		return nil
	}

	sorted := make([]models.PricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	returns := make([]float64, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1].Close, sorted[i].Close
		if prev <= 0 || cur <= 0 {
			returns[i-1] = math.NaN()
			continue
		}
		returns[i-1] = math.Log(cur / prev)
	}
	return returns
}
