// Package bond implements cash-flow discounting and yield-to-maturity
// solving for coupon-bearing fixed-income securities. Pricing assumes
// equally spaced coupon periods with discrete per-period compounding.
package bond

import (
	"fmt"
	"math"

	"github.com/mvikraman/quantbench/pkg/models"
)

// ErrInvalidSecurity is returned when the payment frequency or term makes
// the payment step count undefined.
var ErrInvalidSecurity = fmt.Errorf("payments per year and term must be positive")

// Steps returns the number of discrete payment steps over the term:
// round(λ · termYears).
func Steps(sec models.CouponSecurity, termYears float64) (int, error) {
	if sec.PaymentsPerYear <= 0 || termYears <= 0 {
		return 0, ErrInvalidSecurity
	}
	return int(math.Round(float64(sec.PaymentsPerYear) * termYears)), nil
}

// Schedule returns the undiscounted payment per step, 1-indexed at offset 0.
// The final step includes the par redemption, so the sum of the schedule is
// (couponRate/λ · par) · N + par.
func Schedule(sec models.CouponSecurity, termYears float64) ([]float64, error) {
	n, err := Steps(sec, termYears)
	if err != nil {
		return nil, err
	}

	couponFlow := sec.CouponRate / float64(sec.PaymentsPerYear) * sec.ParValue
	payments := make([]float64, n)
	for i := range payments {
		payments[i] = couponFlow
	}
	if n > 0 {
		payments[n-1] += sec.ParValue
	}
	return payments, nil
}

// Residual returns the discounted net present value of the security's cash
// flows at the candidate yield, minus the observed price. It is zero exactly
// at the true yield to maturity for that price.
//
// The candidate yield may be negative. Yields at or below −λ make the
// per-period discount base non-positive and are a caller precondition,
// not a runtime check.
func Residual(sec models.CouponSecurity, yield, termYears, price float64) (float64, error) {
	pv, err := PresentValue(sec, yield, termYears)
	if err != nil {
		return 0, err
	}
	return pv - price, nil
}

// PresentValue discounts the full cash-flow schedule at the candidate yield.
// The step-i discount factor is (1 + yield/λ)^i.
func PresentValue(sec models.CouponSecurity, yield, termYears float64) (float64, error) {
	n, err := Steps(sec, termYears)
	if err != nil {
		return 0, err
	}

	lambda := float64(sec.PaymentsPerYear)
	couponFlow := sec.CouponRate / lambda * sec.ParValue
	base := 1 + yield/lambda

	pv := 0.0
	for i := 1; i <= n; i++ {
		payment := couponFlow
		if i == n {
			payment += sec.ParValue
		}
		pv += payment / math.Pow(base, float64(i))
	}
	return pv, nil
}
