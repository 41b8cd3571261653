package models

// --- Growth-rate lattices ---

// LatticeSummary describes an n-state one-step growth-rate lattice
// calibrated from historical log returns. All slices are state-ordered:
// Edges has n+1 strictly increasing entries, everything else has n.
type LatticeSummary struct {
	Edges     []float64 `json:"edges"`      // bin boundaries, strictly increasing
	AvgFactor []float64 `json:"avg_factor"` // mean movement factor per state, NaN when empty
	Freq      []float64 `json:"freq"`       // relative frequencies, sum to 1
	Counts    []int     `json:"counts"`     // sample counts per state, sum to sample size
	Labels    []string  `json:"labels"`     // "S1".."Sn"
	Dt        float64   `json:"dt"`         // step size the factors were scaled by
	Method    string    `json:"method"`     // edge construction method
}

// States returns the number of lattice states.
func (l LatticeSummary) States() int { return len(l.Counts) }

// SampleSize returns the number of cleaned observations the lattice
// was calibrated from.
func (l LatticeSummary) SampleSize() int {
	total := 0
	for _, c := range l.Counts {
		total += c
	}
	return total
}
