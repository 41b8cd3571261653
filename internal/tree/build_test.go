package tree

import (
	"errors"
	"math"
	"testing"

	"github.com/mvikraman/quantbench/pkg/models"
)

// upDownLattice is a calibrated two-state lattice: up factor 1.1 with
// frequency 0.6, down factor 0.9 with frequency 0.4.
func upDownLattice() models.LatticeSummary {
	return models.LatticeSummary{
		Edges:     []float64{-0.2, 0.0, 0.2},
		AvgFactor: []float64{0.9, 1.1},
		Freq:      []float64{0.4, 0.6},
		Counts:    []int{4, 6},
		Labels:    []string{"S1", "S2"},
		Dt:        1.0,
		Method:    "quantile",
	}
}

func TestBuildFromLattice_Binomial(t *testing.T) {
	m, err := BuildFromLattice(100, upDownLattice(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A recombining binomial tree has t+1 nodes at level t.
	for level := 0; level <= 3; level++ {
		nodes, ok := m.NodesAtLevel(level)
		if !ok {
			t.Fatalf("missing level %d", level)
		}
		if len(nodes) != level+1 {
			t.Errorf("level %d: expected %d nodes, got %d", level, level+1, len(nodes))
		}
	}
}

func TestBuildFromLattice_ProbabilitiesSumToOne(t *testing.T) {
	m, err := BuildFromLattice(100, upDownLattice(), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, level := range m.Levels() {
		nodes, _ := m.NodesAtLevel(level)
		sum := 0.0
		for _, n := range nodes {
			sum += n.Probability
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("level %d probabilities sum to %.12f, want 1", level, sum)
		}
	}
}

func TestBuildFromLattice_LevelOnePrices(t *testing.T) {
	m, err := BuildFromLattice(100, upDownLattice(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nodes, _ := m.NodesAtLevel(1)
	found := map[float64]float64{} // price → probability
	for _, n := range nodes {
		found[math.Round(n.Price*1e9)/1e9] = n.Probability
	}
	if p, ok := found[110]; !ok || math.Abs(p-0.6) > 1e-12 {
		t.Errorf("expected up node 110 @ 0.6, got %v", found)
	}
	if p, ok := found[90]; !ok || math.Abs(p-0.4) > 1e-12 {
		t.Errorf("expected down node 90 @ 0.4, got %v", found)
	}
}

func TestBuildFromLattice_ExpectationMatchesDrift(t *testing.T) {
	// With one-step mean factor f̄ = 0.6·1.1 + 0.4·0.9, the level-t
	// expectation is start·f̄^t.
	m, err := BuildFromLattice(100, upDownLattice(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meanFactor := 0.6*1.1 + 0.4*0.9
	for _, level := range m.Levels() {
		e, err := m.ExpectationAtLevel(level)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := 100 * math.Pow(meanFactor, float64(level))
		if math.Abs(e-expected) > 1e-6 {
			t.Errorf("level %d: expected E=%.8f, got %.8f", level, expected, e)
		}
	}
}

func TestBuildFromLattice_SkipsEmptyStates(t *testing.T) {
	lat := upDownLattice()
	lat.AvgFactor = []float64{0.9, math.NaN(), 1.1}
	lat.Freq = []float64{0.4, 0, 0.6}
	lat.Counts = []int{4, 0, 6}
	lat.Labels = []string{"S1", "S2", "S3"}
	lat.Edges = []float64{-0.2, -0.05, 0.05, 0.2}

	m, err := BuildFromLattice(100, lat, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only the two occupied states should shape the tree.
	nodes, _ := m.NodesAtLevel(2)
	if len(nodes) != 3 {
		t.Errorf("expected 3 nodes at level 2 with two active states, got %d", len(nodes))
	}
	for _, n := range nodes {
		if math.IsNaN(n.Price) || math.IsNaN(n.Probability) {
			t.Errorf("empty state leaked NaN into the tree: %+v", n)
		}
	}
}

func TestBuildFromLattice_ThreeStates(t *testing.T) {
	lat := models.LatticeSummary{
		Edges:     []float64{-0.3, -0.1, 0.1, 0.3},
		AvgFactor: []float64{0.85, 1.0, 1.15},
		Freq:      []float64{0.25, 0.5, 0.25},
		Counts:    []int{1, 2, 1},
		Labels:    []string{"S1", "S2", "S3"},
		Dt:        1.0,
		Method:    "equal-width",
	}

	m, err := BuildFromLattice(50, lat, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Compositions of 2 over 3 states: C(4,2) = 6 nodes.
	nodes, _ := m.NodesAtLevel(2)
	if len(nodes) != 6 {
		t.Errorf("expected 6 nodes at level 2 for 3 states, got %d", len(nodes))
	}

	sum := 0.0
	for _, n := range nodes {
		sum += n.Probability
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("level 2 probabilities sum to %.12f, want 1", sum)
	}
}

func TestBuildFromLattice_InvalidInputs(t *testing.T) {
	if _, err := BuildFromLattice(0, upDownLattice(), 3); !errors.Is(err, ErrInvalidTreeInput) {
		t.Errorf("expected ErrInvalidTreeInput for zero start price, got %v", err)
	}
	if _, err := BuildFromLattice(100, upDownLattice(), -1); !errors.Is(err, ErrInvalidTreeInput) {
		t.Errorf("expected ErrInvalidTreeInput for negative depth, got %v", err)
	}

	empty := models.LatticeSummary{
		AvgFactor: []float64{math.NaN(), math.NaN()},
		Freq:      []float64{0, 0},
		Counts:    []int{0, 0},
	}
	if _, err := BuildFromLattice(100, empty, 3); !errors.Is(err, ErrInvalidTreeInput) {
		t.Errorf("expected ErrInvalidTreeInput for unoccupied lattice, got %v", err)
	}
}

func TestCompositions(t *testing.T) {
	out := compositions(2, 2)
	if len(out) != 3 {
		t.Fatalf("expected 3 compositions of 2 over 2 parts, got %d", len(out))
	}
	for _, c := range out {
		if c[0]+c[1] != 2 {
			t.Errorf("composition %v does not sum to 2", c)
		}
	}
}

func TestMultinomial(t *testing.T) {
	// 4!/(2!·2!) = 6
	if got := multinomial(4, []int{2, 2}); math.Abs(got-6) > 1e-9 {
		t.Errorf("expected 6, got %f", got)
	}
	// 3!/(3!·0!) = 1
	if got := multinomial(3, []int{3, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected 1, got %f", got)
	}
}
