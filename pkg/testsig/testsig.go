// SPDX-License-Identifier: MIT

// Package testsig generates deterministic PCM signals for tests.
package testsig

import "math"

// Sine returns n samples of a sine wave at the given frequency and
// sample rate, with amplitude 0.9 to stay clear of clipping.
func Sine(n int, sampleRate, frequency float64) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		t := float64(i) / sampleRate
		buf[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buf
}

// Complex returns a 440 Hz fundamental with two harmonics, a rough
// stand-in for voiced speech energy.
func Complex(n int, sampleRate float64) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		t := float64(i) / sampleRate
		s := math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
		buf[i] = float32(s * 0.9)
	}
	return buf
}

// Ramp returns n samples counting up from start, one unit per sample.
// Useful for verifying ordering and ranges in buffer tests.
func Ramp(n int, start float32) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = start + float32(i)
	}
	return buf
}

// PeakIndex returns the index of the largest value in magnitudes within
// [lo, hi], clamped to the slice bounds.
func PeakIndex(magnitudes []float64, lo, hi int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if lo < 0 {
		lo = 0
	}
	if hi >= len(magnitudes) {
		hi = len(magnitudes) - 1
	}
	peak := lo
	for i := lo + 1; i <= hi; i++ {
		if magnitudes[i] > magnitudes[peak] {
			peak = i
		}
	}
	return peak
}
