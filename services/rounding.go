package services

import "math"

// RoundAmount rounds an extended amount to 2 decimal places, half away from
// zero. amount = RoundAmount(price * quantity) everywhere in the engine.
func RoundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundUnitPrice rounds an intermediate unit price to 4 decimal places
// before it is used downstream.
func RoundUnitPrice(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// CeilTotal rounds a top-level declared total up to 2 decimal places.
// Ceiling-biased so totals are never silently under-reported.
func CeilTotal(v float64) float64 {
	return math.Ceil(v*100) / 100
}

// nearlyEqual reports whether two floats agree within tol.
func nearlyEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// relativeDeviation returns |a-b| scaled by the magnitude of b, or the
// absolute difference when b is zero.
func relativeDeviation(a, b float64) float64 {
	if b == 0 {
		return math.Abs(a - b)
	}
	return math.Abs(a-b) / math.Abs(b)
}
