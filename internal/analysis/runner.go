// SPDX-License-Identifier: MIT
package analysis

import (
	"sync"
	"time"

	applog "conch/internal/log"
)

// FrameSink receives throttled frames. The frame's Rows slice is only
// valid for the duration of the call; sinks that keep it must copy.
type FrameSink interface {
	PushFrame(Frame)
}

// Runner drives the engine at a fixed tick rate on its own goroutine
// and forwards frames to sinks through the render throttle. Ticks the
// engine cannot keep up with are dropped by the ticker, never queued.
type Runner struct {
	engine   *Engine
	interval time.Duration
	throttle *Throttle
	sinks    []FrameSink

	rowBuf []float64 // reused across ticks

	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewRunner creates a runner ticking at tickRate per second,
// forwarding at most maxFPS frames per second to the sinks.
func NewRunner(engine *Engine, tickRate, maxFPS int, sinks ...FrameSink) *Runner {
	if tickRate < 1 {
		tickRate = 1
	}
	return &Runner{
		engine:   engine,
		interval: time.Second / time.Duration(tickRate),
		throttle: NewThrottle(maxFPS),
		sinks:    sinks,
		rowBuf:   make([]float64, engine.Rows()),
		doneChan: make(chan struct{}),
	}
}

// Start launches the tick loop. Idempotent.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true

	r.wg.Add(1)
	go r.loop()
	applog.Infof("analysis: runner started (tick %s, %d rows)", r.interval, r.engine.Rows())
}

// Stop terminates the tick loop and waits for it. Idempotent.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.doneChan)
	})
	r.wg.Wait()

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.doneChan:
			return
		case <-ticker.C:
			r.engine.Tick()
			if len(r.sinks) == 0 || !r.throttle.Allow() {
				continue
			}
			gen, err := r.engine.FrameInto(r.rowBuf)
			if err != nil {
				applog.Errorf("analysis: frame copy failed: %v", err)
				continue
			}
			frame := Frame{Rows: r.rowBuf, Gen: gen}
			for _, sink := range r.sinks {
				sink.PushFrame(frame)
			}
		}
	}
}
