package tree

import (
	"golang.org/x/sync/errgroup"

	"github.com/mvikraman/quantbench/pkg/models"
)

// The statistics below assume the probabilities at each queried level sum
// to 1; that is a construction-time invariant of the tree, not something
// enforced here.

// ExpectationAtLevel returns the probability-weighted mean price across the
// nodes at a level.
func (m *Model) ExpectationAtLevel(level int) (float64, error) {
	nodes, ok := m.NodesAtLevel(level)
	if !ok {
		return 0, ErrLevelNotFound
	}

	mean := 0.0
	for _, n := range nodes {
		mean += n.Price * n.Probability
	}
	return mean, nil
}

// VarianceAtLevel returns the probability-weighted variance of prices at a
// level. It uses the two-pass form Σ pᵢ·(xᵢ−μ)², which avoids the
// catastrophic cancellation of E[X²]−E[X]² on near-deterministic levels.
// Round-off can still leave a tiny negative result, which is clamped to 0.
func (m *Model) VarianceAtLevel(level int) (float64, error) {
	mean, err := m.ExpectationAtLevel(level)
	if err != nil {
		return 0, err
	}

	nodes, _ := m.NodesAtLevel(level)
	variance := 0.0
	for _, n := range nodes {
		d := n.Price - mean
		variance += n.Probability * d * d
	}
	if variance < 0 {
		variance = 0
	}
	return variance, nil
}

// ExpectationSeries computes the expectation for each requested level, in
// the order given, labelling each result with level+startIndex so a
// sub-tree can carry a shifted time axis.
func (m *Model) ExpectationSeries(levels []int, startIndex int) ([]models.LevelStat, error) {
	return m.series(levels, startIndex, m.ExpectationAtLevel)
}

// VarianceSeries is the variance analogue of ExpectationSeries.
func (m *Model) VarianceSeries(levels []int, startIndex int) ([]models.LevelStat, error) {
	return m.series(levels, startIndex, m.VarianceAtLevel)
}

func (m *Model) series(levels []int, startIndex int, stat func(int) (float64, error)) ([]models.LevelStat, error) {
	out := make([]models.LevelStat, 0, len(levels))
	for _, level := range levels {
		v, err := stat(level)
		if err != nil {
			return nil, err
		}
		out = append(out, models.LevelStat{
			TimeIndex: level + startIndex,
			Value:     v,
		})
	}
	return out, nil
}

// SummaryAllLevels computes expectation and variance for every populated
// level. Levels are independent reads of an immutable model, so they are
// evaluated concurrently; results come back in ascending level order.
func (m *Model) SummaryAllLevels() ([]models.LevelSummary, error) {
	levels := m.Levels()
	out := make([]models.LevelSummary, len(levels))

	var g errgroup.Group
	for i, level := range levels {
		i, level := i, level
		g.Go(func() error {
			e, err := m.ExpectationAtLevel(level)
			if err != nil {
				return err
			}
			v, err := m.VarianceAtLevel(level)
			if err != nil {
				return err
			}
			out[i] = models.LevelSummary{Level: level, Expectation: e, Variance: v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
