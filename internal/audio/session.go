// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"sync"
)

// SessionState is the push-to-talk lifecycle state.
type SessionState int

const (
	// StateIdle: not recording, no utterance in flight.
	StateIdle SessionState = iota
	// StateRecording: between key down and key up.
	StateRecording
	// StateFinalizing: utterance extracted, transcription pending.
	StateFinalizing
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// SessionEvent drives the state machine.
type SessionEvent int

const (
	EventKeyDown SessionEvent = iota
	EventKeyUp
	EventFinalized // transcription finished (or was abandoned)
)

// ErrNoSpeech reports an utterance shorter than the configured
// minimum; transcription is skipped entirely.
var ErrNoSpeech = errors.New("utterance below minimum duration")

// transition is the pure state transition function. It returns the
// next state and whether the event fires in the given state; rejected
// events leave the state unchanged.
func transition(s SessionState, ev SessionEvent) (SessionState, bool) {
	switch {
	case s == StateIdle && ev == EventKeyDown:
		return StateRecording, true
	case s == StateRecording && ev == EventKeyUp:
		return StateFinalizing, true
	case s == StateFinalizing && ev == EventFinalized:
		return StateIdle, true
	default:
		return s, false
	}
}

// Session runs the push-to-talk machine over a ring buffer. KeyDown
// and KeyUp snapshot the write cursor; the samples between the two
// snapshots are the utterance. At most one utterance is in flight:
// KeyDown while a transcription is pending is rejected.
type Session struct {
	mu         sync.Mutex
	ring       *RingBuffer
	state      SessionState
	startSeq   uint64
	endSeq     uint64
	minSamples uint64
	maxSamples uint64
}

// NewSession creates a session over ring. minSamples is the shortest
// utterance worth transcribing; maxSamples caps extraction length
// (0 disables the cap).
func NewSession(ring *RingBuffer, minSamples, maxSamples int) *Session {
	s := &Session{ring: ring, state: StateIdle}
	if minSamples > 0 {
		s.minSamples = uint64(minSamples)
	}
	if maxSamples > 0 {
		s.maxSamples = uint64(maxSamples)
	}
	return s
}

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// KeyDown starts recording. Returns true if recording started; a
// repeat KeyDown while recording, or a KeyDown while a transcription
// is still pending, reports false and changes nothing.
func (s *Session) KeyDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := transition(s.state, EventKeyDown)
	if !ok {
		return false
	}
	s.startSeq = s.ring.WriteSeq()
	s.state = next
	return true
}

// KeyUp stops recording and extracts the utterance.
//
// Outcomes:
//   - not recording: (nil, nil), a no-op
//   - too short: (nil, ErrNoSpeech), back to idle, STT skipped
//   - overwritten: (nil, ErrOverrun), back to idle, utterance lost
//   - success: samples and nil; the session stays in Finalizing until
//     Finalize is called with the transcription outcome
func (s *Session) KeyUp() ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := transition(s.state, EventKeyUp)
	if !ok {
		return nil, nil
	}
	s.endSeq = s.ring.WriteSeq()

	if s.endSeq-s.startSeq < s.minSamples {
		s.state = StateIdle
		return nil, ErrNoSpeech
	}

	start := s.startSeq
	if s.maxSamples > 0 && s.endSeq-start > s.maxSamples {
		// Keep the tail: the most recent samples are the ones the
		// speaker just said.
		start = s.endSeq - s.maxSamples
	}

	samples, err := s.ring.ExtractRange(start, s.endSeq)
	if err != nil {
		s.state = StateIdle
		return nil, err
	}
	s.state = next
	return samples, nil
}

// Finalize completes the in-flight utterance, whatever its outcome,
// returning the session to idle. A Finalize in any other state is a
// no-op.
func (s *Session) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next, ok := transition(s.state, EventFinalized); ok {
		s.state = next
	}
}

// Bounds returns the last start/end cursor snapshots. Valid after a
// successful KeyUp.
func (s *Session) Bounds() (start, end uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startSeq, s.endSeq
}
