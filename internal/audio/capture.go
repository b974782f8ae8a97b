// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"conch/internal/config"
	applog "conch/internal/log"
)

// Engine owns the PortAudio input stream and feeds the ring buffer.
// The callback downmixes interleaved frames to mono into a
// pre-allocated buffer and writes them to the ring; nothing else runs
// on the audio thread.
type Engine struct {
	config *config.Config

	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	sampleRate float64
	channels   int

	ring      *RingBuffer
	resampler *Resampler
	monoBuf   []float32 // callback scratch, one sample per frame

	samplesCaptured atomic.Uint64
	callbacks       atomic.Uint64
}

// NewEngine resolves the input device and sizes the ring buffer for
// cfg.Audio.BufferSeconds at the native rate. A configured sample
// rate of 0 takes the device default.
func NewEngine(cfg *config.Config) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, fmt.Errorf("input device unavailable: %w", err)
	}

	sampleRate := cfg.Audio.SampleRate
	if sampleRate == 0 {
		sampleRate = inputDevice.DefaultSampleRate
	}

	channels := cfg.Audio.Channels
	if channels > inputDevice.MaxInputChannels {
		channels = inputDevice.MaxInputChannels
	}
	if channels < 1 {
		return nil, fmt.Errorf("device %q has no input channels", inputDevice.Name)
	}

	resampler, err := NewResampler(sampleRate, channels, sampleRate)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:      cfg,
		inputDevice: inputDevice,
		sampleRate:  sampleRate,
		channels:    channels,
		ring:        NewRingBuffer(int(sampleRate) * cfg.Audio.BufferSeconds),
		resampler:   resampler,
		monoBuf:     make([]float32, cfg.Audio.FramesPerBuffer),
	}

	if cfg.Audio.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return e, nil
}

// Ring returns the capture buffer shared with analysis and session.
func (e *Engine) Ring() *RingBuffer { return e.ring }

// SampleRate returns the native capture rate in Hz.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// Channels returns the captured channel count before downmix.
func (e *Engine) Channels() int { return e.channels }

// DeviceName returns the resolved input device name.
func (e *Engine) DeviceName() string { return e.inputDevice.Name }

// SamplesCaptured returns the total mono samples written to the ring.
func (e *Engine) SamplesCaptured() uint64 { return e.samplesCaptured.Load() }

// StartInputStream opens and starts the capture stream. Opening is
// retried with doubling backoff; a device that stays unavailable is
// fatal to capture and the error is returned.
func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.sampleRate,
	}

	var lastErr error
	backoff := config.DeviceOpenRetryBackoff
	for attempt := 1; attempt <= config.DeviceOpenRetries; attempt++ {
		stream, err := portaudio.OpenStream(params, e.processInputStream)
		if err == nil {
			if err = stream.Start(); err == nil {
				e.inputStream = stream
				applog.Infof("capture started: %s @ %.0f Hz, %d ch, %d frames/buffer",
					e.inputDevice.Name, e.sampleRate, e.channels, e.config.Audio.FramesPerBuffer)
				return nil
			}
			stream.Close()
		}
		lastErr = err
		applog.Warnf("device open attempt %d/%d failed: %v", attempt, config.DeviceOpenRetries, err)
		if attempt < config.DeviceOpenRetries {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return fmt.Errorf("device unavailable after %d attempts: %w", config.DeviceOpenRetries, lastErr)
}

// StopInputStream stops and closes the capture stream.
func (e *Engine) StopInputStream() error {
	if e.inputStream == nil {
		return nil
	}
	if err := e.inputStream.Stop(); err != nil {
		return err
	}
	if err := e.inputStream.Close(); err != nil {
		return err
	}
	e.inputStream = nil
	return nil
}

// processInputStream is the audio callback.
// Performance Critical:
// - Runs on the PortAudio thread (kept locked to its OS thread)
// - Pre-allocated buffers only, no allocation
// - Only touches the ring; analysis and STT read from it elsewhere
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	frames := e.resampler.DownmixInto(e.monoBuf, in)
	e.ring.Write(e.monoBuf[:frames])

	e.samplesCaptured.Add(uint64(frames))
	e.callbacks.Add(1)
}
