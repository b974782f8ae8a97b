// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
)

// Resampler converts captured PCM (native rate, native channel count)
// to the mono rate the transcription model expects. Downmix averages
// channels; rate conversion is linear interpolation, with the output
// index mapped back into the source so phase error never accumulates.
type Resampler struct {
	inRate   float64
	outRate  float64
	channels int
}

// NewResampler creates a converter from inRate/channels to mono
// outRate. Rates and channel count must be positive.
func NewResampler(inRate float64, channels int, outRate float64) (*Resampler, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("resampler rates must be positive, got %g -> %g", inRate, outRate)
	}
	if channels < 1 {
		return nil, fmt.Errorf("resampler channels must be >= 1, got %d", channels)
	}
	return &Resampler{inRate: inRate, outRate: outRate, channels: channels}, nil
}

// DownmixInto averages interleaved frames into mono, writing one
// sample per frame into dst, and returns the frame count. Non-finite
// input samples are treated as zero. dst must hold
// len(in)/channels samples. No allocation; callable from the audio
// callback.
func (r *Resampler) DownmixInto(dst, in []float32) int {
	frames := len(in) / r.channels
	if frames > len(dst) {
		frames = len(dst)
	}
	if r.channels == 1 {
		for i := 0; i < frames; i++ {
			dst[i] = sanitize(in[i])
		}
		return frames
	}
	scale := float32(1) / float32(r.channels)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * r.channels
		for c := 0; c < r.channels; c++ {
			sum += sanitize(in[base+c])
		}
		dst[i] = sum * scale
	}
	return frames
}

// Process converts an interleaved utterance buffer to mono at the
// output rate. The result length is round(frames*outRate/inRate),
// within one sample of the exact duration.
func (r *Resampler) Process(in []float32) []float32 {
	frames := len(in) / r.channels
	mono := make([]float32, frames)
	r.DownmixInto(mono, in)

	if r.inRate == r.outRate {
		return mono
	}
	return r.resample(mono)
}

func (r *Resampler) resample(mono []float32) []float32 {
	n := len(mono)
	outLen := int(math.Round(float64(n) * r.outRate / r.inRate))
	if n == 0 || outLen == 0 {
		return nil
	}

	out := make([]float32, outLen)
	step := r.inRate / r.outRate
	for i := range out {
		src := float64(i) * step
		idx := int(src)
		if idx >= n-1 {
			out[i] = mono[n-1]
			continue
		}
		frac := float32(src - float64(idx))
		out[i] = mono[idx] + (mono[idx+1]-mono[idx])*frac
	}
	return out
}

// sanitize clamps NaN and infinities to silence so one bad device
// sample cannot poison the model input.
func sanitize(s float32) float32 {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return s
}
