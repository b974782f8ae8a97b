// SPDX-License-Identifier: MIT
/*
Package analysis turns the capture buffer into display-ready
spectrogram frames. Each tick takes the latest STFT window, applies
the window function, computes the magnitude spectrum with gonum, bins
it logarithmically onto display rows, gates it against the running
noise floor and normalizes to [0,1] via a dB mapping.

Thread Safety:
- Tick runs on the analysis goroutine only
- Frame and FrameInto may be called concurrently from renderers and
  transports; the workspace is guarded by an RWMutex
*/
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"conch/pkg/bitint"
)

// Display mapping constants. Magnitudes below the gate render as
// silence; the rest map -40..0 dB onto 0..1.
const (
	minRMSGate  = 0.005 // windows quieter than this are silence outright
	minRefLevel = 0.05  // normalization floor, keeps quiet noise from filling the display
	dbRange     = 40.0
)

// Frame is one display-ready spectrogram column.
type Frame struct {
	Rows []float64 // normalized [0,1], low frequencies first
	Gen  uint64    // increments once per tick
	RMS  float64   // window RMS before gating
}

// SampleSource is the read side of the capture buffer.
type SampleSource interface {
	ReadLatestInto(dst []float32) int
}

// Pre-allocated buffers for one engine instance.
type workspace struct {
	raw       []float32    // latest window from the source
	input     []float64    // windowed samples
	fftOutput []complex128 // FFT coefficients
	magnitude []float64    // magnitude spectrum
	window    []float64    // window coefficients
	rows      []float64    // published display rows
	mu        sync.RWMutex // guards rows, gen and rms
}

// Engine computes spectrogram frames at a fixed cadence.
type Engine struct {
	fft        *fourier.FFT
	fftSize    int
	rows       int
	sampleRate float64
	source     SampleSource
	noise      *NoiseFloor
	ws         workspace
	gen        uint64
	rms        float64
}

// NewEngine creates a spectrogram engine. fftSize must be a power of
// 2 and rows must fit within the usable bins (fftSize/2).
func NewEngine(fftSize, rows int, sampleRate float64, wf WindowFunc, source SampleSource, noise *NoiseFloor) (*Engine, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if rows < 1 || rows > fftSize/2 {
		return nil, fmt.Errorf("rows must be within [1, %d], got %d", fftSize/2, rows)
	}
	if source == nil {
		return nil, fmt.Errorf("sample source must not be nil")
	}

	magnitudeSize := fftSize/2 + 1
	return &Engine{
		fft:        fourier.NewFFT(fftSize),
		fftSize:    fftSize,
		rows:       rows,
		sampleRate: sampleRate,
		source:     source,
		noise:      noise,
		ws: workspace{
			raw:       make([]float32, fftSize),
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, magnitudeSize),
			magnitude: make([]float64, magnitudeSize),
			window:    windowCoefficients(fftSize, wf),
			rows:      make([]float64, rows),
		},
	}, nil
}

// Rows returns the configured display row count.
func (e *Engine) Rows() int { return e.rows }

// Generation returns the published frame counter.
func (e *Engine) Generation() uint64 {
	e.ws.mu.RLock()
	defer e.ws.mu.RUnlock()
	return e.gen
}

// Tick computes and publishes one frame from the latest window.
// A source holding fewer than fftSize samples is treated as leading
// silence. No allocation.
func (e *Engine) Tick() {
	n := e.source.ReadLatestInto(e.ws.raw)

	// RMS over what was actually captured.
	var sumSq float64
	for i := 0; i < n; i++ {
		s := float64(e.ws.raw[i])
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
			e.ws.raw[i] = 0
		}
		sumSq += s * s
	}
	rms := 0.0
	if n > 0 {
		rms = math.Sqrt(sumSq / float64(n))
	}
	if e.noise != nil {
		e.noise.Observe(rms)
	}

	// Window the input, right-aligned so the newest samples sit at the
	// end; the missing head is zero-padded.
	pad := e.fftSize - n
	for i := 0; i < pad; i++ {
		e.ws.input[i] = 0
	}
	for i := 0; i < n; i++ {
		e.ws.input[pad+i] = float64(e.ws.raw[i]) * e.ws.window[pad+i]
	}

	e.fft.Coefficients(e.ws.fftOutput, e.ws.input)

	scale := 1.0 / float64(e.fftSize)
	for i, c := range e.ws.fftOutput {
		e.ws.magnitude[i] = cmplx.Abs(c) * scale
	}

	e.ws.mu.Lock()
	e.binRows()
	e.normalizeRows(rms)
	e.gen++
	e.rms = rms
	e.ws.mu.Unlock()
}

// binRows folds the magnitude spectrum onto display rows with
// logarithmically spaced bin boundaries, so each octave gets a
// similar share of rows. Row i covers bins [B^(i/rows), B^((i+1)/rows))
// where B is the usable bin count; the DC bin is skipped.
func (e *Engine) binRows() {
	usable := float64(e.fftSize / 2)
	for i := 0; i < e.rows; i++ {
		lo := int(math.Pow(usable, float64(i)/float64(e.rows)))
		hi := int(math.Pow(usable, float64(i+1)/float64(e.rows)))
		if lo < 1 {
			lo = 1
		}
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(e.ws.magnitude) {
			hi = len(e.ws.magnitude)
		}
		peak := 0.0
		for b := lo; b < hi; b++ {
			if e.ws.magnitude[b] > peak {
				peak = e.ws.magnitude[b]
			}
		}
		e.ws.rows[i] = peak
	}
}

// normalizeRows gates the rows against the noise floor and maps the
// survivors from -dbRange..0 dB onto 0..1.
func (e *Engine) normalizeRows(rms float64) {
	gate := minRMSGate
	if e.noise != nil {
		if f := e.noise.Floor() * noiseGateRatio; f > gate {
			gate = f
		}
	}
	if rms < gate {
		for i := range e.ws.rows {
			e.ws.rows[i] = 0
		}
		return
	}

	ref := minRefLevel
	for _, v := range e.ws.rows {
		if v > ref {
			ref = v
		}
	}
	for i, v := range e.ws.rows {
		if v <= 0 {
			e.ws.rows[i] = 0
			continue
		}
		db := 20 * math.Log10(v/ref)
		norm := (db + dbRange) / dbRange
		if norm < 0 {
			norm = 0
		} else if norm > 1 {
			norm = 1
		}
		e.ws.rows[i] = norm
	}
}

// Frame returns a copy of the latest published frame. Allocates; for
// the per-tick path use FrameInto.
func (e *Engine) Frame() Frame {
	e.ws.mu.RLock()
	defer e.ws.mu.RUnlock()
	rows := make([]float64, len(e.ws.rows))
	copy(rows, e.ws.rows)
	return Frame{Rows: rows, Gen: e.gen, RMS: e.rms}
}

// FrameInto copies the latest published rows into dst, which must be
// exactly Rows() long, and returns the generation. No allocation.
func (e *Engine) FrameInto(dst []float64) (uint64, error) {
	e.ws.mu.RLock()
	defer e.ws.mu.RUnlock()
	if len(dst) != len(e.ws.rows) {
		return 0, fmt.Errorf("destination length %d does not match row count %d", len(dst), len(e.ws.rows))
	}
	copy(dst, e.ws.rows)
	return e.gen, nil
}
