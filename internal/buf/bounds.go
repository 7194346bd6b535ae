// Package buf holds overflow-checked size arithmetic and byte-range helpers
// shared by the allocator and the trace replayer.
package buf

import "math"

// Add returns a+b, or ok = false when the sum overflows int.
func Add(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// Mul returns a*b for non-negative operands. ok is false when either operand
// is negative or the product overflows int.
func Mul(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// Span returns b[off:off+n] with its capacity clipped to n, so appends
// through the result cannot spill into the next block.
func Span(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := Add(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}

// Within reports whether [off, off+n) lies inside [lo, hi).
func Within(lo, hi, off, n int) bool {
	if n < 0 || off < lo {
		return false
	}
	end, ok := Add(off, n)
	return ok && end <= hi
}

// Overlaps reports whether [a, a+an) and [b, b+bn) share at least one byte.
// Empty ranges overlap nothing.
func Overlaps(a, an, b, bn int) bool {
	if an <= 0 || bn <= 0 {
		return false
	}
	return a < b+bn && b < a+an
}
