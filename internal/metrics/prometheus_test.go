// SPDX-License-Identifier: MIT
package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetrics_Exposition(t *testing.T) {
	t.Parallel()
	captured := 0.0
	m := New(Probes{
		SamplesCaptured: func() float64 { return captured },
		AnalysisGen:     func() float64 { return 42 },
	})

	m.Utterances.Inc()
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(1.5)
	captured = 48000

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	body := string(data)

	for _, want := range []string{
		"conch_utterances_total 1",
		"conch_transcription_successes_total 1",
		"conch_samples_captured_total 48000",
		"conch_analysis_generation 42",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetrics_ProbesOptional(t *testing.T) {
	t.Parallel()
	m := New(Probes{})
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
