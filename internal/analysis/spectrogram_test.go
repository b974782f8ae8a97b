// SPDX-License-Identifier: MIT
package analysis

import (
	"testing"

	"conch/pkg/testsig"
)

// sliceSource serves the tail of a fixed sample slice.
type sliceSource []float32

func (s sliceSource) ReadLatestInto(dst []float32) int {
	n := len(dst)
	if n > len(s) {
		n = len(s)
	}
	copy(dst, s[len(s)-n:])
	return n
}

func newTestEngine(t *testing.T, src SampleSource, noise *NoiseFloor) *Engine {
	t.Helper()
	e, err := NewEngine(2048, 32, 16000, Hann, src, noise)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestNewEngine_Rejections(t *testing.T) {
	t.Parallel()
	src := sliceSource(make([]float32, 2048))
	if _, err := NewEngine(2000, 32, 16000, Hann, src, nil); err == nil {
		t.Error("non power-of-2 size must be rejected")
	}
	if _, err := NewEngine(2048, 32, 0, Hann, src, nil); err == nil {
		t.Error("zero sample rate must be rejected")
	}
	if _, err := NewEngine(2048, 2048, 16000, Hann, src, nil); err == nil {
		t.Error("more rows than usable bins must be rejected")
	}
	if _, err := NewEngine(2048, 32, 16000, Hann, nil, nil); err == nil {
		t.Error("nil source must be rejected")
	}
}

func TestEngine_SilenceYieldsZeroRows(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, sliceSource(make([]float32, 4096)), nil)
	e.Tick()

	f := e.Frame()
	if f.Gen != 1 {
		t.Errorf("generation = %d, want 1", f.Gen)
	}
	for i, v := range f.Rows {
		if v != 0 {
			t.Fatalf("row %d = %g for silence, want 0", i, v)
		}
	}
}

func TestEngine_SinePeaksInExpectedRow(t *testing.T) {
	t.Parallel()
	// 440 Hz at 16 kHz lands in bin 56 of a 2048-point FFT, which the
	// 32-row log binning over 1024 usable bins maps to row 18.
	src := sliceSource(testsig.Sine(4096, 16000, 440))
	e := newTestEngine(t, src, nil)
	e.Tick()

	f := e.Frame()
	peak := testsig.PeakIndex(f.Rows, 0, len(f.Rows)-1)
	if peak != 18 {
		t.Errorf("peak row = %d, want 18 (rows: %v)", peak, f.Rows)
	}
	if f.Rows[peak] != 1.0 {
		t.Errorf("peak row value = %g, want 1.0", f.Rows[peak])
	}
	if f.RMS < 0.5 {
		t.Errorf("window RMS = %g, want >= 0.5 for a 0.9 amplitude sine", f.RMS)
	}
}

func TestEngine_RowsWithinUnitRange(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, sliceSource(testsig.Complex(4096, 16000)), nil)
	e.Tick()

	for i, v := range e.Frame().Rows {
		if v < 0 || v > 1 {
			t.Errorf("row %d = %g, outside [0,1]", i, v)
		}
	}
}

// A source shorter than the window counts as leading silence, not an
// error.
func TestEngine_ShortSourceZeroPads(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, sliceSource(testsig.Sine(512, 16000, 440)), nil)
	e.Tick()

	if got := e.Generation(); got != 1 {
		t.Errorf("generation = %d, want 1", got)
	}
	for i, v := range e.Frame().Rows {
		if v < 0 || v > 1 {
			t.Errorf("row %d = %g, outside [0,1]", i, v)
		}
	}
}

func TestEngine_NoiseFloorGatesQuietInput(t *testing.T) {
	t.Parallel()
	noise := NewNoiseFloor(0.5)
	quiet := make([]float32, 4096)
	for i := range quiet {
		quiet[i] = 0.02 // steady hum above the absolute gate
	}
	e := newTestEngine(t, sliceSource(quiet), noise)

	// Let the floor settle on the hum, then the hum itself must gate
	// to zero.
	for i := 0; i < 10; i++ {
		e.Tick()
	}
	for i, v := range e.Frame().Rows {
		if v != 0 {
			t.Fatalf("row %d = %g for ambient hum, want gated to 0", i, v)
		}
	}
}

func TestEngine_FrameInto(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, sliceSource(testsig.Sine(4096, 16000, 440)), nil)
	e.Tick()

	dst := make([]float64, e.Rows())
	gen, err := e.FrameInto(dst)
	if err != nil {
		t.Fatalf("FrameInto: %v", err)
	}
	if gen != 1 {
		t.Errorf("generation = %d, want 1", gen)
	}

	if _, err := e.FrameInto(make([]float64, 7)); err == nil {
		t.Error("wrong destination length must be rejected")
	}
}

func TestEngine_TickDoesNotAllocate(t *testing.T) {
	e := newTestEngine(t, sliceSource(testsig.Sine(4096, 16000, 440)), NewNoiseFloor(0.05))
	e.Tick() // prime

	allocs := testing.AllocsPerRun(50, func() {
		e.Tick()
	})
	if allocs != 0 {
		t.Errorf("Tick allocates %.0f times per call, want 0", allocs)
	}
}

func BenchmarkEngineTick(b *testing.B) {
	src := sliceSource(testsig.Complex(4096, 16000))
	e, err := NewEngine(2048, 32, 16000, Hann, src, NewNoiseFloor(0.05))
	if err != nil {
		b.Fatalf("NewEngine: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Tick()
	}
}
