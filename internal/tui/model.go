// SPDX-License-Identifier: MIT

// Package tui is the interactive control surface: a bubbletea model
// that drives the push-to-talk session from the keyboard, renders the
// live spectrogram and collects transcripts.
//
// Terminals deliver no key-release events, so the space bar toggles:
// first press maps to key down, second press to key up.
package tui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"conch/internal/audio"
	applog "conch/internal/log"
	"conch/internal/metrics"
	"conch/internal/stt"
	"conch/internal/transport"
)

// FrameMsg carries one spectrogram frame into the update loop. Rows
// are owned by the message.
type FrameMsg struct {
	Rows []float64
	Gen  uint64
}

// resultMsg carries a transcription outcome from the worker.
type resultMsg stt.Result

// archivedMsg reports a background WAV archive write.
type archivedMsg struct {
	path string
	err  error
}

const maxTranscripts = 50

// Model is the bubbletea model for the capture client.
type Model struct {
	session    *audio.Session
	resampler  *audio.Resampler
	worker     *stt.Worker
	archive    *audio.Archive      // optional
	metrics    *metrics.Metrics    // optional
	transport  transport.Transport // optional, receives confirmed transcripts
	sampleRate float64             // native rate, for duration display

	rows        []float64
	gen         uint64
	transcripts []string
	pendingText string // transcribed, awaiting keep/discard
	status      string
	waiting     bool // transcription in flight
	width       int
	height      int
}

// Options carries the optional collaborators.
type Options struct {
	Archive   *audio.Archive
	Metrics   *metrics.Metrics
	Transport transport.Transport
}

// New creates the model. session, resampler and worker are required.
func New(session *audio.Session, resampler *audio.Resampler, worker *stt.Worker, sampleRate float64, opts Options) Model {
	return Model{
		session:    session,
		resampler:  resampler,
		worker:     worker,
		archive:    opts.Archive,
		metrics:    opts.Metrics,
		transport:  opts.Transport,
		sampleRate: sampleRate,
		status:     "press space to record",
	}
}

// Init starts listening for transcription results.
func (m Model) Init() tea.Cmd {
	return m.waitForResult()
}

// waitForResult blocks on the worker's result channel as a command,
// re-armed after every delivery.
func (m Model) waitForResult() tea.Cmd {
	return func() tea.Msg {
		r, ok := <-m.worker.Results()
		if !ok {
			return nil
		}
		return resultMsg(r)
	}
}

// Update handles input, frames and transcription results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case FrameMsg:
		if m.metrics != nil {
			m.metrics.FramesRendered.Inc()
			if m.gen != 0 && msg.Gen > m.gen+1 {
				m.metrics.FramesDropped.Add(float64(msg.Gen - m.gen - 1))
			}
		}
		m.rows = msg.Rows
		m.gen = msg.Gen
		return m, nil

	case resultMsg:
		return m.handleResult(stt.Result(msg))

	case archivedMsg:
		if msg.err != nil {
			applog.Errorf("archive: %v", msg.err)
		} else {
			applog.Debugf("archive: saved %s", msg.path)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit

	case " ":
		return m.toggleRecording()

	case "enter":
		if m.pendingText != "" {
			m.transcripts = append(m.transcripts, m.pendingText)
			if len(m.transcripts) > maxTranscripts {
				m.transcripts = m.transcripts[len(m.transcripts)-maxTranscripts:]
			}
			if m.transport != nil {
				_ = m.transport.Send(transport.TranscriptMessage{
					Type: transport.TypeTranscript,
					Text: m.pendingText,
				})
			}
			m.pendingText = ""
			m.status = "press space to record"
		}
		return m, nil

	case "backspace":
		if m.pendingText != "" {
			m.pendingText = ""
			m.status = "discarded, press space to record"
		}
		return m, nil
	}
	return m, nil
}

// toggleRecording maps the space toggle onto key down / key up.
func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	switch m.session.State() {
	case audio.StateIdle:
		if m.session.KeyDown() {
			m.status = "recording, space to stop"
		} else {
			m.status = "busy, wait for the current utterance"
		}
		return m, nil

	case audio.StateRecording:
		return m.stopRecording()

	default:
		m.status = "busy, wait for the current utterance"
		return m, nil
	}
}

func (m Model) stopRecording() (tea.Model, tea.Cmd) {
	samples, err := m.session.KeyUp()
	switch {
	case errors.Is(err, audio.ErrNoSpeech):
		if m.metrics != nil {
			m.metrics.UtterancesTooShort.Inc()
		}
		m.status = "no speech detected"
		return m, nil

	case errors.Is(err, audio.ErrOverrun):
		if m.metrics != nil {
			m.metrics.RingOverruns.Inc()
		}
		m.status = "held too long, utterance discarded"
		return m, nil

	case err != nil:
		m.session.Finalize()
		m.status = fmt.Sprintf("capture error: %v", err)
		return m, nil

	case samples == nil:
		return m, nil
	}

	duration := float64(len(samples)) / m.sampleRate
	if m.metrics != nil {
		m.metrics.Utterances.Inc()
		m.metrics.UtteranceDuration.Observe(duration)
	}

	pcm := m.resampler.Process(samples)
	if err := m.worker.Submit(pcm); err != nil {
		m.session.Finalize()
		m.status = fmt.Sprintf("cannot transcribe: %v", err)
		return m, nil
	}
	m.waiting = true
	m.status = fmt.Sprintf("transcribing %.1fs…", duration)

	var cmd tea.Cmd
	if m.archive != nil {
		samplesCopy := samples
		cmd = func() tea.Msg {
			path, err := m.archive.Save(samplesCopy)
			return archivedMsg{path: path, err: err}
		}
	}
	return m, cmd
}

func (m Model) handleResult(r stt.Result) (tea.Model, tea.Cmd) {
	m.session.Finalize()
	m.waiting = false

	if m.metrics != nil {
		m.metrics.TranscriptionDuration.Observe(r.Elapsed.Seconds())
	}

	switch {
	case r.Err == nil:
		if m.metrics != nil {
			m.metrics.TranscriptionSuccesses.Inc()
		}
		m.pendingText = r.Text
		m.status = "enter to keep, backspace to discard"

	case errors.Is(r.Err, stt.ErrNoSpeech):
		m.status = "no speech detected"

	case errors.Is(r.Err, stt.ErrTimeout):
		if m.metrics != nil {
			m.metrics.TranscriptionTimeouts.Inc()
		}
		m.status = "transcription timed out"

	default:
		if m.metrics != nil {
			m.metrics.TranscriptionFailures.Inc()
		}
		m.status = fmt.Sprintf("transcription failed: %v", r.Err)
	}

	return m, m.waitForResult()
}
