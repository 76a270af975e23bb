//go:build purego

package gosampler

// scaleChannel is the portable fallback for scaleChannel, used on the
// purego build tag when the SIMD backend is unavailable.
func scaleChannel(dst []float32, s float32) {
	for i := range dst {
		dst[i] *= s
	}
}
