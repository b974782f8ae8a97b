// SPDX-License-Identifier: MIT
package stt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var _ Engine = (*Server)(nil)

// Server transcribes against a running whisper-server: the utterance
// is wrapped in a WAV container and POSTed to /inference as
// multipart/form-data.
type Server struct {
	baseURL    string
	language   string
	sampleRate int
	client     *http.Client
}

// NewServer creates a client for the whisper-server at baseURL.
func NewServer(baseURL, language string, sampleRate int) *Server {
	return &Server{
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   language,
		sampleRate: sampleRate,
		// Per-job deadlines come from the caller's context; this is
		// only a backstop against a hung connection.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Transcribe POSTs the utterance and returns the transcribed text.
func (s *Server) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %v: %w", err, ErrInference)
	}
	if _, err := fw.Write(encodeWAV(pcm, s.sampleRate)); err != nil {
		return "", fmt.Errorf("write wav data: %v: %w", err, ErrInference)
	}
	if s.language != "" {
		if err := mw.WriteField("language", s.language); err != nil {
			return "", fmt.Errorf("write language field: %v: %w", err, ErrInference)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %v: %w", err, ErrInference)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %v: %w", err, ErrInference)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("request aborted: %v: %w", err, ErrTimeout)
		}
		return "", fmt.Errorf("http request: %v: %w", err, ErrInference)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned HTTP %d: %w", resp.StatusCode, ErrInference)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %v: %w", err, ErrInference)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("parse JSON response: %v: %w", err, ErrInference)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// Close is a no-op; connections belong to the shared HTTP client.
func (s *Server) Close() error { return nil }

// encodeWAV wraps float32 PCM as 16-bit mono in a standard RIFF/WAV
// container, the format whisper-server expects.
func encodeWAV(pcm []float32, sampleRate int) []byte {
	const (
		channels = 1
		bps      = 16
	)
	byteRate := sampleRate * channels * bps / 8
	blockAlign := channels * bps / 8
	dataSize := len(pcm) * 2

	buf := make([]byte, 44+dataSize)

	// RIFF chunk descriptor.
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk.
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // sub-chunk size (PCM)
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bps)

	// data sub-chunk.
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	for i, s := range pcm {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(int16(s*32767)))
	}

	return buf
}
