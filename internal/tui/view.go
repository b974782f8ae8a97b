// SPDX-License-Identifier: MIT
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"conch/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	recordingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	transcriptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	barLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	barMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	barHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Eight levels plus blank for zero.
var barChars = []rune("▁▂▃▄▅▆▇█")

// renderBars draws one character per row, colored by intensity.
func renderBars(rows []float64) string {
	var sb strings.Builder
	for _, v := range rows {
		if v <= 0 {
			sb.WriteByte(' ')
			continue
		}
		level := int(v * float64(len(barChars)))
		if level >= len(barChars) {
			level = len(barChars) - 1
		}
		ch := string(barChars[level])
		switch {
		case v < 0.33:
			sb.WriteString(barLow.Render(ch))
		case v < 0.66:
			sb.WriteString(barMid.Render(ch))
		default:
			sb.WriteString(barHigh.Render(ch))
		}
	}
	return sb.String()
}

// View renders the full screen.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("conch"))
	sb.WriteString("\n\n")

	sb.WriteString("  [")
	sb.WriteString(renderBars(m.rows))
	sb.WriteString("]\n\n")

	switch {
	case m.session.State() == audio.StateRecording:
		sb.WriteString(recordingStyle.Render("  ● REC "))
	case m.waiting:
		sb.WriteString(statusStyle.Render("  ◌ ... "))
	default:
		sb.WriteString(statusStyle.Render("  ○     "))
	}
	sb.WriteString(statusStyle.Render(m.status))
	sb.WriteString("\n\n")

	if m.pendingText != "" {
		sb.WriteString(pendingStyle.Render("  > " + m.pendingText))
		sb.WriteString("\n\n")
	}

	// Most recent transcripts, newest last, trimmed to the window.
	shown := m.transcripts
	if max := m.transcriptLines(); len(shown) > max {
		shown = shown[len(shown)-max:]
	}
	for _, t := range shown {
		sb.WriteString(transcriptStyle.Render("  " + t))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')

	sb.WriteString(helpStyle.Render("  space record/stop · enter keep · backspace discard · q quit"))
	sb.WriteByte('\n')

	return sb.String()
}

// transcriptLines returns how many history lines fit the window,
// leaving room for the header, bars, status and help.
func (m Model) transcriptLines() int {
	if m.height == 0 {
		return 8
	}
	n := m.height - 10
	if n < 1 {
		n = 1
	}
	return n
}
