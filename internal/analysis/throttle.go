// SPDX-License-Identifier: MIT
package analysis

import (
	"sync"
	"time"
)

// Throttle caps how often frames reach the renderer. Frames arriving
// inside the minimum interval are dropped, never queued, so a slow
// terminal can never build a backlog of stale frames.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewThrottle allows at most maxPerSecond frames through.
func NewThrottle(maxPerSecond int) *Throttle {
	if maxPerSecond < 1 {
		maxPerSecond = 1
	}
	return &Throttle{interval: time.Second / time.Duration(maxPerSecond)}
}

// Allow reports whether a frame may be forwarded now.
func (t *Throttle) Allow() bool {
	return t.allowAt(time.Now())
}

func (t *Throttle) allowAt(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
