// Package gamemath holds the movement math shared by the server and the
// predicting client. Both sides must integrate inputs identically or replayed
// predictions drift from the authoritative result, so everything here is pure
// and deterministic.
package gamemath

import "math"

// Axis collapses a pair of opposing buttons onto the wire axis range.
// Opposing presses cancel to zero; otherwise the pressed side saturates
// to the int16 extreme.
func Axis(negative, positive bool) int16 {
	switch {
	case negative == positive:
		return 0
	case negative:
		return math.MinInt16
	default:
		return math.MaxInt16
	}
}

// AxesFromButtons maps the four movement buttons onto the two wire axes.
// Left and down are the negative directions.
func AxesFromButtons(up, down, left, right bool) (x, y int16) {
	return Axis(left, right), Axis(down, up)
}

// Normalized maps a wire axis value onto [-1, 1]. The int16 range is
// asymmetric, so the negative side divides by MinInt16 to keep both
// extremes landing exactly on the unit endpoints.
func Normalized(v int16) float64 {
	if v < 0 {
		return -float64(v) / float64(math.MinInt16)
	}
	return float64(v) / float64(math.MaxInt16)
}
