// SPDX-License-Identifier: MIT

// Package metrics exposes pipeline counters over Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applog "conch/internal/log"
)

// Metrics holds every Prometheus metric for the capture client.
type Metrics struct {
	// Capture.
	SamplesCaptured prometheus.CounterFunc
	RingOverruns    prometheus.Counter

	// Session.
	Utterances         prometheus.Counter
	UtterancesTooShort prometheus.Counter
	UtteranceDuration  prometheus.Histogram

	// Analysis.
	AnalysisGeneration prometheus.GaugeFunc
	FramesRendered     prometheus.Counter
	FramesDropped      prometheus.Counter

	// Transcription.
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionTimeouts  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	registry *prometheus.Registry
}

// Probes supplies live readings pulled at scrape time. Nil probes are
// skipped.
type Probes struct {
	SamplesCaptured func() float64
	AnalysisGen     func() float64
}

// New creates a Metrics set on its own registry.
func New(probes Probes) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		RingOverruns: factory.NewCounter(prometheus.CounterOpts{
			Name: "conch_ring_overruns_total",
			Help: "Utterances lost because the capture ring overwrote their span",
		}),
		Utterances: factory.NewCounter(prometheus.CounterOpts{
			Name: "conch_utterances_total",
			Help: "Utterances extracted and submitted for transcription",
		}),
		UtterancesTooShort: factory.NewCounter(prometheus.CounterOpts{
			Name: "conch_utterances_too_short_total",
			Help: "Key releases below the minimum utterance duration",
		}),
		UtteranceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "conch_utterance_duration_seconds",
			Help:    "Duration of extracted utterances",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s .. 32s
		}),
		FramesRendered: factory.NewCounter(prometheus.CounterOpts{
			Name: "conch_frames_rendered_total",
			Help: "Spectrogram frames forwarded to the renderer",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "conch_frames_dropped_total",
			Help: "Spectrogram frames dropped by the render throttle",
		}),
		TranscriptionSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "conch_transcription_successes_total",
			Help: "Utterances transcribed successfully",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "conch_transcription_failures_total",
			Help: "Utterances that failed transcription (timeouts excluded)",
		}),
		TranscriptionTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "conch_transcription_timeouts_total",
			Help: "Utterances abandoned at the transcription deadline",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "conch_transcription_duration_seconds",
			Help:    "Wall time per transcription",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}),
	}

	if probes.SamplesCaptured != nil {
		m.SamplesCaptured = factory.NewCounterFunc(prometheus.CounterOpts{
			Name: "conch_samples_captured_total",
			Help: "Mono samples written to the capture ring",
		}, probes.SamplesCaptured)
	}
	if probes.AnalysisGen != nil {
		m.AnalysisGeneration = factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "conch_analysis_generation",
			Help: "Latest published spectrogram generation",
		}, probes.AnalysisGen)
	}

	return m
}

// Handler returns the exposition handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs the exposition endpoint on addr until the server fails
// or the process exits. Intended to run under an errgroup.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	applog.Infof("metrics: exposition on http://%s/metrics", addr)
	return http.ListenAndServe(addr, mux)
}
