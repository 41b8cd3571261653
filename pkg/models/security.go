package models

// --- Fixed income ---

// CouponSecurity describes a coupon-bearing fixed-income security in
// normalized terms. Prices and par values share the same currency units
// (par is conventionally 100.0 or 1.0).
type CouponSecurity struct {
	CouponRate      float64 `json:"coupon_rate"`       // annual rate as a fraction (0.05 = 5%)
	ParValue        float64 `json:"par_value"`         // redemption value at maturity
	PaymentsPerYear int     `json:"payments_per_year"` // λ: coupon payments per year
}

// YieldSolution is the result of a yield-to-maturity solve.
// Yield is annualized and expressed as a fraction.
type YieldSolution struct {
	Yield      float64   `json:"yield"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"` // false when the iteration budget ran out
	Trace      []float64 `json:"trace"`     // every estimate in order, the two seeds first
}
