//go:build !purego

package gosampler

import "github.com/tphakala/simd/f32"

// scaleChannel multiplies dst in place by s using tphakala/simd's
// vectorized implementation where the target supports it; f32.Scale
// falls back to a scalar loop itself on platforms without a vector
// backend, so there is no separate dispatch needed here.
func scaleChannel(dst []float32, s float32) {
	f32.Scale(dst, dst, s)
}
