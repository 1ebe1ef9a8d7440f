// Package money holds the rounding rules used for every derived amount.
package money

import "math"

// Round2 rounds half away from zero to two decimal places. The value is
// first snapped to six decimals so binary noise (2.345 stored as
// 2.34499...) rounds the way the decimal columns do.
func Round2(v float64) float64 {
	snapped := math.Round(v*1e6) / 1e4
	return math.Round(snapped) / 100
}

// Payment is the earning for hours worked at rate, rounded to cents.
func Payment(hours, rate float64) float64 {
	return Round2(hours * rate)
}

// Percent returns part as a percentage of whole, or 0 when whole is not positive.
func Percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}
