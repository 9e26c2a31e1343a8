/*
Package bitint holds the power-of-two helpers used to size analysis frames.

A frame length must be a power of two for the real FFT to run at its radix-2
fast path, and the config layer uses NextPowerOfTwo to suggest the nearest
valid size when a user supplies something else.

	NextPowerOfTwo(2000) // 2048
	IsPowerOfTwo(2048)   // true

Both functions are O(1), allocation free and safe to call from the audio
callback.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Sizes <= 0 map
// to 1. Subtracting one before taking the bit length keeps exact powers of
// two unchanged (8-1 = 0b0111, bit length 3, 1<<3 = 8).
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has a single bit set, so clearing the lowest set bit with n&(n-1) leaves
// zero only for those values.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// FrameDurationNanos returns how long a frame of frameSize samples lasts at
// sampleRate, in nanoseconds. Zero or negative rates yield 0.
func FrameDurationNanos(frameSize int, sampleRate float64) int64 {
	if sampleRate <= 0 || frameSize <= 0 {
		return 0
	}
	return int64(float64(frameSize) / sampleRate * 1e9)
}
