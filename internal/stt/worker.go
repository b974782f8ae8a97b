// SPDX-License-Identifier: MIT
package stt

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	applog "conch/internal/log"
)

// Result is the outcome of one transcription job.
type Result struct {
	Text    string
	Err     error
	Elapsed time.Duration
}

// Worker runs the engine on its own goroutine so a slow decode can
// never stall the control loop. One utterance is in flight at a time;
// Submit while busy fails with ErrBusy. Each job gets a hard deadline
// and its outcome arrives on Results.
type Worker struct {
	engine  Engine
	timeout time.Duration

	jobs    chan []float32
	results chan Result
	busy    atomic.Bool

	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorker wraps engine with a per-job timeout.
func NewWorker(engine Engine, timeout time.Duration) *Worker {
	return &Worker{
		engine:   engine,
		timeout:  timeout,
		jobs:     make(chan []float32, 1),
		results:  make(chan Result, 1),
		doneChan: make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop terminates the worker and waits for an in-flight decode to
// return. Idempotent.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.doneChan)
	})
	w.wg.Wait()
}

// Results delivers one Result per accepted Submit.
func (w *Worker) Results() <-chan Result {
	return w.results
}

// Busy reports whether an utterance is in flight.
func (w *Worker) Busy() bool {
	return w.busy.Load()
}

// Submit queues an utterance for transcription. The caller keeps no
// reference to pcm afterwards. Fails with ErrBusy while a previous
// utterance is still decoding.
func (w *Worker) Submit(pcm []float32) error {
	select {
	case <-w.doneChan:
		return ErrStopped
	default:
	}
	if !w.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	select {
	case w.jobs <- pcm:
		return nil
	case <-w.doneChan:
		w.busy.Store(false)
		return ErrStopped
	}
}

func (w *Worker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.doneChan:
			return
		case pcm := <-w.jobs:
			w.deliver(w.transcribe(pcm))
			w.busy.Store(false)
		}
	}
}

// transcribe runs one job against the engine with a deadline. The
// engine call itself runs on a further goroutine: whisper decodes are
// not interruptible, so on timeout the result is reported immediately
// and the stale decode is discarded when it eventually returns.
func (w *Worker) transcribe(pcm []float32) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	ch := make(chan Result, 1)
	go func() {
		text, err := w.engine.Transcribe(ctx, pcm)
		ch <- Result{Text: text, Err: err, Elapsed: time.Since(start)}
	}()

	select {
	case r := <-ch:
		return r
	case <-ctx.Done():
		applog.Warnf("stt: transcription exceeded %s, discarding", w.timeout)
		return Result{Err: ErrTimeout, Elapsed: time.Since(start)}
	}
}

func (w *Worker) deliver(r Result) {
	select {
	case w.results <- r:
	case <-w.doneChan:
	}
}
