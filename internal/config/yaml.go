// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"conch/pkg/bitint"
)

// LoadConfig loads configuration from the YAML file at path. An empty
// path searches the default location ("conch.yaml") and falls back to
// built-in defaults when no file exists. Environment overrides apply
// after the file, and the final configuration is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat("conch.yaml"); err == nil {
			path = "conch.yaml"
		} else {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration against hardware and pipeline
// limits. Called after all override layers have been applied.
func (c *Config) Validate() error {
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
	}
	if c.Audio.SampleRate != 0 && (c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate) {
		return fmt.Errorf("audio.sample_rate must be 0 or within [%d, %d], got %g", MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.Channels < 1 {
		return fmt.Errorf("audio.channels must be >= 1, got %d", c.Audio.Channels)
	}
	if c.Audio.FramesPerBuffer < 1 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be within [1, %d], got %d", MaxBufferFrames, c.Audio.FramesPerBuffer)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FramesPerBuffer) {
		return fmt.Errorf("audio.frames_per_buffer must be a power of 2, got %d (try %d)",
			c.Audio.FramesPerBuffer, bitint.NextPowerOfTwo(c.Audio.FramesPerBuffer))
	}
	if c.Audio.BufferSeconds < 1 {
		return fmt.Errorf("audio.buffer_seconds must be >= 1, got %d", c.Audio.BufferSeconds)
	}
	if c.Session.MinUtterance <= 0 {
		return fmt.Errorf("session.min_utterance must be positive, got %s", c.Session.MinUtterance)
	}
	if c.Session.MaxUtterance <= c.Session.MinUtterance {
		return fmt.Errorf("session.max_utterance (%s) must exceed min_utterance (%s)", c.Session.MaxUtterance, c.Session.MinUtterance)
	}
	if time.Duration(c.Audio.BufferSeconds)*time.Second < c.Session.MaxUtterance {
		return fmt.Errorf("audio.buffer_seconds (%d) must cover session.max_utterance (%s)", c.Audio.BufferSeconds, c.Session.MaxUtterance)
	}
	if !bitint.IsPowerOfTwo(c.Analysis.FFTSize) {
		return fmt.Errorf("analysis.fft_size must be a power of 2, got %d", c.Analysis.FFTSize)
	}
	if c.Analysis.Rows < 1 || c.Analysis.Rows > c.Analysis.FFTSize/2 {
		return fmt.Errorf("analysis.rows must be within [1, fft_size/2], got %d", c.Analysis.Rows)
	}
	if c.Analysis.TickRate < MinTickRate || c.Analysis.TickRate > MaxTickRate {
		return fmt.Errorf("analysis.tick_rate must be within [%d, %d], got %d", MinTickRate, MaxTickRate, c.Analysis.TickRate)
	}
	if c.Analysis.NoiseFloorAlpha <= 0 || c.Analysis.NoiseFloorAlpha >= 1 {
		return fmt.Errorf("analysis.noise_floor_alpha must be within (0, 1), got %g", c.Analysis.NoiseFloorAlpha)
	}
	if c.Render.MaxFPS < 1 {
		return fmt.Errorf("render.max_fps must be >= 1, got %d", c.Render.MaxFPS)
	}
	switch c.STT.Engine {
	case "whisper", "server":
	default:
		return fmt.Errorf("stt.engine must be \"whisper\" or \"server\", got %q", c.STT.Engine)
	}
	if c.STT.TargetRate < MinSampleRate || c.STT.TargetRate > MaxSampleRate {
		return fmt.Errorf("stt.target_rate must be within [%d, %d], got %d", MinSampleRate, MaxSampleRate, c.STT.TargetRate)
	}
	if c.STT.Timeout <= 0 {
		return fmt.Errorf("stt.timeout must be positive, got %s", c.STT.Timeout)
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr must be set when metrics are enabled")
	}
	return nil
}

// applyEnvOverrides layers CONCH_* environment variables on top of the
// loaded configuration. Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("CONCH_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("CONCH_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("CONCH_MODEL"); ok {
		c.STT.ModelPath = val
	}
	if val, ok := os.LookupEnv("CONCH_STT_SERVER"); ok {
		c.STT.ServerURL = val
	}
	if val, ok := os.LookupEnv("CONCH_STT_TIMEOUT"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.STT.Timeout = d
		}
	}
	if val, ok := os.LookupEnv("CONCH_WS_ADDR"); ok {
		c.Transport.WSEnabled = true
		c.Transport.WSListenAddr = val
	}
	if val, ok := os.LookupEnv("CONCH_UDP_TARGET"); ok {
		c.Transport.UDPEnabled = true
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("CONCH_METRICS_ADDR"); ok {
		c.Metrics.Enabled = true
		c.Metrics.ListenAddr = val
	}
}
