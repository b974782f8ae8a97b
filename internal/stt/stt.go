// SPDX-License-Identifier: MIT
/*
Package stt turns finalized utterances into text. Two engines are
provided: the native whisper.cpp bindings (CGO) and an HTTP client for
a running whisper-server. Both take mono float32 PCM at the model
input rate. The Worker runs transcription off the control loop with a
single utterance in flight and a hard deadline per job.
*/
package stt

import (
	"context"
	"errors"
)

// Failure classes surfaced to the control loop. Every engine error
// wraps one of these so callers can switch on errors.Is.
var (
	// ErrModelNotLoaded: the model file is missing or failed to load.
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrNoSpeech: the model produced no text for the utterance.
	ErrNoSpeech = errors.New("no speech detected")
	// ErrInference: the engine failed while transcribing.
	ErrInference = errors.New("inference failed")
	// ErrTimeout: transcription exceeded its deadline.
	ErrTimeout = errors.New("transcription timed out")
	// ErrBusy: an utterance is already in flight.
	ErrBusy = errors.New("transcription already in flight")
	// ErrStopped: the worker has shut down.
	ErrStopped = errors.New("transcription worker stopped")
)

// Engine transcribes one utterance of mono PCM at the engine's input
// rate. Implementations are not required to support concurrent calls;
// the Worker serializes access.
type Engine interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
	Close() error
}
