// SPDX-License-Identifier: MIT
package analysis

import (
	"testing"
	"time"
)

func TestThrottle_DropsInsideInterval(t *testing.T) {
	t.Parallel()
	th := NewThrottle(10) // 100ms interval
	base := time.Unix(0, 0)

	if !th.allowAt(base.Add(time.Second)) {
		t.Fatal("first frame must pass")
	}
	if th.allowAt(base.Add(time.Second + 50*time.Millisecond)) {
		t.Error("frame inside the interval must be dropped")
	}
	if !th.allowAt(base.Add(time.Second + 100*time.Millisecond)) {
		t.Error("frame at the interval boundary must pass")
	}
}

func TestThrottle_NeverQueues(t *testing.T) {
	t.Parallel()
	th := NewThrottle(10)
	base := time.Unix(1, 0)

	th.allowAt(base)
	// A burst of dropped frames must not earn credit for later.
	for i := 1; i <= 9; i++ {
		th.allowAt(base.Add(time.Duration(i) * 10 * time.Millisecond))
	}
	if th.allowAt(base.Add(99 * time.Millisecond)) {
		t.Error("throttle accumulated credit from dropped frames")
	}
}

func TestNewThrottle_ClampsRate(t *testing.T) {
	t.Parallel()
	th := NewThrottle(0)
	if th.interval != time.Second {
		t.Errorf("interval = %s, want 1s for clamped rate", th.interval)
	}
}
