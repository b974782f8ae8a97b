// SPDX-License-Identifier: MIT
package transport

import (
	"testing"

	"conch/internal/analysis"
)

// mockTransport records the last message instead of transmitting.
type mockTransport struct {
	sent []any
}

func (m *mockTransport) Send(data any) error {
	m.sent = append(m.sent, data)
	return nil
}

func (m *mockTransport) Close() error { return nil }

func TestFrameSink_CopiesRows(t *testing.T) {
	t.Parallel()
	mock := &mockTransport{}
	sink := NewFrameSink(mock)

	rows := []float64{0.1, 0.5, 0.9}
	sink.PushFrame(analysis.Frame{Rows: rows, Gen: 7})

	// The runner reuses its buffer; mutating it must not reach the
	// queued message.
	rows[0] = 0.0

	if len(mock.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(mock.sent))
	}
	msg, ok := mock.sent[0].(SpectrogramMessage)
	if !ok {
		t.Fatalf("message type %T, want SpectrogramMessage", mock.sent[0])
	}
	if msg.Type != TypeSpectrogram || msg.Gen != 7 {
		t.Errorf("message header = (%s, %d), want (%s, 7)", msg.Type, msg.Gen, TypeSpectrogram)
	}
	if msg.Rows[0] != 0.1 {
		t.Errorf("rows not copied: first row = %g, want 0.1", msg.Rows[0])
	}
}
