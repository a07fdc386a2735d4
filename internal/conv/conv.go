// Package conv provides safe integer narrowing for the analysis
// pipeline's dense state ids.
//
// Bounds are checked before narrowing to prevent silent overflow; an
// overflow panics since it indicates a programming error (a pattern
// producing more states than the id space can represent).
package conv

import "math"

// IntToUint32 safely converts an int to uint32.
// Panics if n < 0 or n > math.MaxUint32.
func IntToUint32(n int) uint32 {
	// Use uint for comparison to avoid overflow on 32-bit platforms
	// where int cannot represent math.MaxUint32.
	if n < 0 || uint(n) > math.MaxUint32 {
		panic("conv: int value out of uint32 range")
	}
	return uint32(n)
}
