package bond

import (
	"fmt"
	"math"

	"github.com/mvikraman/quantbench/pkg/models"
)

// ErrNumericalDivergence is returned when the secant update divides by zero
// because two consecutive residuals are exactly equal. The classic algorithm
// defines no recovery from this state.
var ErrNumericalDivergence = fmt.Errorf("secant iteration diverged: equal residuals at consecutive estimates")

// SolverOptions controls the secant yield solver. Zero values fall back to
// the defaults from DefaultSolverOptions.
type SolverOptions struct {
	SeedLow       float64 // first seed yield (default 0.01)
	SeedHigh      float64 // second seed yield (default 0.10)
	Tolerance     float64 // convergence threshold on the yield step (default 1e-6)
	MaxIterations int     // hard iteration cap (default 100)
}

// DefaultSolverOptions returns seeds and bounds suited to typical coupon
// securities.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		SeedLow:       0.01,
		SeedHigh:      0.10,
		Tolerance:     1e-6,
		MaxIterations: 100,
	}
}

// SolveYTM estimates the yield to maturity that zeroes the pricing residual,
// using the derivative-free secant method.
//
// The solve is best-effort: when the iteration budget runs out before the
// step drops below tolerance, the current estimate is still returned with
// Converged set to false rather than an error. The returned Trace holds
// every estimate in order, starting with the two seeds, so convergence
// behavior can be reconstructed.
func SolveYTM(sec models.CouponSecurity, termYears, price float64, opts SolverOptions) (models.YieldSolution, error) {
	defaults := DefaultSolverOptions()
	if opts.SeedLow == 0 && opts.SeedHigh == 0 {
		opts.SeedLow = defaults.SeedLow
		opts.SeedHigh = defaults.SeedHigh
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = defaults.Tolerance
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaults.MaxIterations
	}

	y1, y2 := opts.SeedLow, opts.SeedHigh

	f1, err := Residual(sec, y1, termYears, price)
	if err != nil {
		return models.YieldSolution{}, err
	}
	f2, err := Residual(sec, y2, termYears, price)
	if err != nil {
		return models.YieldSolution{}, err
	}

	trace := make([]float64, 0, opts.MaxIterations+2)
	trace = append(trace, y1, y2)

	for i := 1; i <= opts.MaxIterations; i++ {
		if f2 == f1 {
			return models.YieldSolution{}, ErrNumericalDivergence
		}

		next := y2 - f2*(y2-y1)/(f2-f1)
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return models.YieldSolution{}, ErrNumericalDivergence
		}
		trace = append(trace, next)

		if math.Abs(next-y2) < opts.Tolerance {
			return models.YieldSolution{
				Yield:      next,
				Iterations: i,
				Converged:  true,
				Trace:      trace,
			}, nil
		}

		y1, f1 = y2, f2
		y2 = next
		f2, err = Residual(sec, y2, termYears, price)
		if err != nil {
			return models.YieldSolution{}, err
		}
	}

	// Budget exhausted: hand back the best estimate and let the caller
	// decide how much to trust it.
	return models.YieldSolution{
		Yield:      y2,
		Iterations: opts.MaxIterations,
		Converged:  false,
		Trace:      trace,
	}, nil
}
