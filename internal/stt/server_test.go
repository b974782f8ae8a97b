// SPDX-License-Identifier: MIT
package stt

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"conch/pkg/testsig"
)

func TestServer_Transcribe(t *testing.T) {
	t.Parallel()
	var gotLanguage string
	var gotWAV []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotLanguage = r.FormValue("language")
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
		} else {
			gotWAV, _ = io.ReadAll(f)
			f.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text": "  testing one two  "}`)
	}))
	defer srv.Close()

	s := NewServer(srv.URL, "en", 16000)
	text, err := s.Transcribe(context.Background(), testsig.Sine(1600, 16000, 440))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "testing one two" {
		t.Errorf("text = %q, want trimmed transcript", text)
	}
	if gotLanguage != "en" {
		t.Errorf("language field = %q, want en", gotLanguage)
	}

	// The upload must be a valid 16-bit mono RIFF container.
	if len(gotWAV) != 44+1600*2 {
		t.Fatalf("wav length = %d, want %d", len(gotWAV), 44+1600*2)
	}
	if string(gotWAV[0:4]) != "RIFF" || string(gotWAV[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if rate := binary.LittleEndian.Uint32(gotWAV[24:28]); rate != 16000 {
		t.Errorf("wav sample rate = %d, want 16000", rate)
	}
	if ch := binary.LittleEndian.Uint16(gotWAV[22:24]); ch != 1 {
		t.Errorf("wav channels = %d, want 1", ch)
	}
}

func TestServer_EmptyTextIsNoSpeech(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"text": "  "}`)
	}))
	defer srv.Close()

	s := NewServer(srv.URL, "en", 16000)
	_, err := s.Transcribe(context.Background(), make([]float32, 160))
	if !errors.Is(err, ErrNoSpeech) {
		t.Errorf("error = %v, want ErrNoSpeech", err)
	}
}

func TestServer_HTTPErrorIsInference(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewServer(srv.URL, "", 16000)
	_, err := s.Transcribe(context.Background(), make([]float32, 160))
	if !errors.Is(err, ErrInference) {
		t.Errorf("error = %v, want ErrInference", err)
	}
}

func TestServer_DeadlineIsTimeout(t *testing.T) {
	t.Parallel()
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	s := NewServer(srv.URL, "", 16000)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.Transcribe(ctx, make([]float32, 160))
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

func TestServer_UnreachableIsInference(t *testing.T) {
	t.Parallel()
	s := NewServer("http://127.0.0.1:1", "", 16000)
	_, err := s.Transcribe(context.Background(), make([]float32, 160))
	if !errors.Is(err, ErrInference) {
		t.Errorf("error = %v, want ErrInference", err)
	}
}

func TestEncodeWAV_ClampsSamples(t *testing.T) {
	t.Parallel()
	buf := encodeWAV([]float32{2, -2}, 16000)
	hi := int16(binary.LittleEndian.Uint16(buf[44:46]))
	lo := int16(binary.LittleEndian.Uint16(buf[46:48]))
	if hi != 32767 || lo != -32767 {
		t.Errorf("clamped samples = (%d, %d), want (32767, -32767)", hi, lo)
	}
}
