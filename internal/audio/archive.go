// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Archive writes finalized utterances to 16-bit mono WAV files, one
// file per utterance. The in-memory ring stays the only audio store
// unless an Archive is attached.
type Archive struct {
	dir        string
	sampleRate int
}

// NewArchive creates the output directory if needed.
func NewArchive(dir string, sampleRate int) (*Archive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &Archive{dir: dir, sampleRate: sampleRate}, nil
}

// Save writes samples as a timestamped WAV file and returns its path.
func (a *Archive) Save(samples []float32) (string, error) {
	name := fmt.Sprintf("utterance-%s.wav", time.Now().UTC().Format("20060102-150405.000"))
	path := filepath.Join(a.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, a.sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: a.sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf.Data[i] = int(s * 32767)
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return path, nil
}
