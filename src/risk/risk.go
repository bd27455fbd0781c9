package risk

import "math"

// PositionSize computes how much of the asset to acquire for one entry:
// a fixed fraction of free cash divided by the current price. The result
// is rounded to 8 decimal places (satoshi-equivalent precision). A zero
// or negative price sizes to zero instead of dividing by it.
func PositionSize(cashBalance, price, riskPct float64) float64 {
	if price <= 0 {
		return 0
	}
	amount := (cashBalance * riskPct) / price
	return math.Round(amount*1e8) / 1e8
}

// WithinExposure reports whether the current asset-value fraction of the
// portfolio is admissible under the configured ceiling. The boundary is
// inclusive.
func WithinExposure(currentExposure, maxExposurePct float64) bool {
	return currentExposure <= maxExposurePct
}
