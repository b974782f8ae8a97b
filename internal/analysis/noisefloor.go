// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sync"
)

// noiseGateRatio marks windows louder than ratio*floor as speech;
// only quieter windows feed the floor estimate.
const noiseGateRatio = 3.0

// NoiseFloor keeps a running estimate of ambient energy from
// low-energy analysis windows. Speech windows are excluded so the
// floor tracks the room, not the speaker.
type NoiseFloor struct {
	mu     sync.Mutex
	floor  float64
	alpha  float64
	primed bool
}

// NewNoiseFloor creates an estimator with the given adaptation
// weight, 0 < alpha < 1. Larger alpha adapts faster.
func NewNoiseFloor(alpha float64) *NoiseFloor {
	return &NoiseFloor{alpha: alpha}
}

// Observe feeds one window RMS into the estimate. Non-finite input is
// ignored.
func (n *NoiseFloor) Observe(rms float64) {
	if math.IsNaN(rms) || math.IsInf(rms, 0) || rms < 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.primed {
		n.floor = rms
		n.primed = true
		return
	}
	if rms <= n.floor*noiseGateRatio {
		n.floor += n.alpha * (rms - n.floor)
	}
}

// Floor returns the current estimate. Zero until primed.
func (n *NoiseFloor) Floor() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.floor
}
