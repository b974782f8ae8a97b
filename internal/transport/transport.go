// SPDX-License-Identifier: MIT

// Package transport publishes spectrogram frames and transcripts to
// external consumers. Implementations must be safe for concurrent
// sends and must never block the caller on a slow client.
package transport

import "conch/internal/analysis"

// Transport sends typed messages to connected consumers.
type Transport interface {
	Send(data any) error
	Close() error
}

// Message types carried over the WebSocket transport.
const (
	TypeSpectrogram = "spectrogram"
	TypeTranscript  = "transcript"
)

// SpectrogramMessage is one display frame.
type SpectrogramMessage struct {
	Type string    `json:"type"`
	Gen  uint64    `json:"gen"`
	Rows []float64 `json:"rows"`
}

// TranscriptMessage is one finalized transcription outcome.
type TranscriptMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// FrameSink adapts a Transport to the analysis runner. Frames are
// copied before queueing because the runner reuses its row buffer.
type FrameSink struct {
	transport Transport
}

// NewFrameSink wraps t.
func NewFrameSink(t Transport) *FrameSink {
	return &FrameSink{transport: t}
}

var _ analysis.FrameSink = (*FrameSink)(nil)

// PushFrame forwards one frame. Send errors are dropped; a transport
// with no listeners is not a pipeline failure.
func (s *FrameSink) PushFrame(f analysis.Frame) {
	rows := make([]float64, len(f.Rows))
	copy(rows, f.Rows)
	_ = s.transport.Send(SpectrogramMessage{Type: TypeSpectrogram, Gen: f.Gen, Rows: rows})
}
