// SPDX-License-Identifier: MIT
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"conch/internal/analysis"
)

// Forwarder bridges the analysis runner to the program's message
// loop. Frames are copied because the runner reuses its row buffer.
type Forwarder struct {
	program *tea.Program
}

var _ analysis.FrameSink = (*Forwarder)(nil)

// NewForwarder wraps a running program.
func NewForwarder(p *tea.Program) *Forwarder {
	return &Forwarder{program: p}
}

// PushFrame sends the frame into the update loop.
func (f *Forwarder) PushFrame(frame analysis.Frame) {
	rows := make([]float64, len(frame.Rows))
	copy(rows, frame.Rows)
	f.program.Send(FrameMsg{Rows: rows, Gen: frame.Gen})
}
