// SPDX-License-Identifier: MIT
package stt

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	applog "conch/internal/log"
)

var _ Engine = (*Whisper)(nil)

// Whisper transcribes with the whisper.cpp CGO bindings. The model is
// loaded once; a single decode context is reused across utterances,
// so calls are serialized with a mutex.
type Whisper struct {
	mu      sync.Mutex
	model   whisperlib.Model
	context whisperlib.Context
}

// NewWhisper loads the ggml model at modelPath and prepares a decode
// context tuned for short dictation utterances. threads <= 0 keeps
// the binding default.
func NewWhisper(modelPath, language string, threads int) (*Whisper, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file %q: %v: %w", modelPath, err, ErrModelNotLoaded)
	}

	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %v: %w", modelPath, err, ErrModelNotLoaded)
	}

	ctx, err := model.NewContext()
	if err != nil {
		model.Close()
		return nil, fmt.Errorf("create context: %v: %w", err, ErrModelNotLoaded)
	}

	if language != "" {
		if err := ctx.SetLanguage(language); err != nil {
			model.Close()
			return nil, fmt.Errorf("set language %q: %v: %w", language, err, ErrModelNotLoaded)
		}
	}
	if threads > 0 {
		ctx.SetThreads(uint(threads))
	}
	// Utterances are independent dictation bursts of a few seconds:
	// a small beam is nearly as accurate and much faster, and feeding
	// previous segments as context would only bleed errors forward.
	ctx.SetBeamSize(2)
	ctx.SetMaxContext(0)

	applog.Infof("stt: whisper model loaded from %s", modelPath)
	return &Whisper{model: model, context: ctx}, nil
}

// Transcribe runs one utterance through the model. The context
// deadline is checked before the decode starts; the decode itself is
// not interruptible once running.
func (w *Whisper) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrTimeout)
	}

	if err := w.context.Process(pcm, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process: %v: %w", err, ErrInference)
	}

	var sb strings.Builder
	for {
		seg, err := w.context.NextSegment()
		if err != nil {
			break // io.EOF, no more segments
		}
		sb.WriteString(seg.Text)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// Close releases the model.
func (w *Whisper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model != nil {
		err := w.model.Close()
		w.model = nil
		return err
	}
	return nil
}
