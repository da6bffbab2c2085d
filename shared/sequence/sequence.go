// Package sequence compares wrapping 16-bit counters. Input counters and
// transport sequence numbers both live in uint16 space and wrap back to zero,
// so plain < and > give the wrong answer near the boundary; a counter is
// "newer" when it sits within the forward half of the number circle.
package sequence

// halfRange is the widest forward distance still counted as newer.
const halfRange = uint16(65535)/2 - 1

// GreaterThan reports whether a is sequentially newer than b.
func GreaterThan(a, b uint16) bool {
	return (a > b && a-b <= halfRange) || (b > a && b-a > halfRange)
}

// GreaterOrEqual reports whether a is sequentially newer than or equal to b.
func GreaterOrEqual(a, b uint16) bool {
	return a == b || GreaterThan(a, b)
}
