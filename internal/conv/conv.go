// Package conv provides safe integer conversion helpers for the regex
// compiler's bytecode emitter.
//
// These functions perform bounds checking before narrowing integer
// conversions to prevent silent overflow. They panic on overflow since
// this indicates a programming error: the compiler must reject
// oversized programs with a proper *compile.Error (spec §5) before it
// ever asks this package to narrow an offset that no longer fits.
package conv

import "math"

// IntToInt16 safely converts an int displacement to int16.
// Panics if n is out of the int16 range.
//
//go:inline
func IntToInt16(n int) int16 {
	if n < math.MinInt16 || n > math.MaxInt16 {
		panic("integer overflow: displacement out of int16 range")
	}
	return int16(n)
}

// IntToUint8 safely converts an int to uint8.
// Panics if n < 0 or n > math.MaxUint8.
//
//go:inline
func IntToUint8(n int) uint8 {
	if n < 0 || n > math.MaxUint8 {
		panic("integer overflow: int value out of uint8 range")
	}
	return uint8(n)
}
