package domain

import "math"

// Round2 rounds a monetary amount to two decimals. The small epsilon keeps
// values sitting exactly on a half cent from rounding down after float
// accumulation (round2(1.005) == 1.01).
func Round2(v float64) float64 {
	return math.Round((v+1e-9)*100) / 100
}
