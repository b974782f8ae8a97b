// SPDX-License-Identifier: MIT

// Package config holds the runtime configuration: built-in defaults,
// optional YAML file, environment overrides, then CLI flags, in that
// order of precedence.
package config

import "time"

// Boundaries and defaults for the capture and analysis pipeline.
const (
	// Audio capture.
	DefaultDeviceID        = MinDeviceID // system default device
	DefaultSampleRate      = 0           // 0 means use the device's default rate
	DefaultChannels        = 1
	DefaultFramesPerBuffer = 512
	DefaultBufferSeconds   = 60 // ring capacity, must cover the longest utterance

	// Push-to-talk session.
	DefaultMinUtterance = 300 * time.Millisecond
	DefaultMaxUtterance = 30 * time.Second

	// Spectrogram analysis.
	DefaultFFTSize         = 2048
	DefaultRows            = 32
	DefaultTickRate        = 30 // analysis ticks per second
	DefaultNoiseFloorAlpha = 0.05

	// Rendering.
	DefaultMaxFPS = 15

	// Speech to text.
	DefaultSTTEngine  = "whisper"
	DefaultModelPath  = "models/ggml-base.en.bin"
	DefaultServerURL  = "http://127.0.0.1:8080"
	DefaultLanguage   = "en"
	DefaultTargetRate = 16000
	DefaultSTTTimeout = 15 * time.Second

	// Hardware and processing limits.
	MinDeviceID     = -1 // -1 selects the system default device
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
	MinTickRate     = 1
	MaxTickRate     = 120

	// Device open retry policy.
	DeviceOpenRetries      = 3
	DeviceOpenRetryBackoff = 500 * time.Millisecond
)

// Config is the main application configuration, loaded from YAML.
type Config struct {
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"` // log destination while the TUI owns the terminal

	// One-off command to execute instead of running the client
	// (e.g. "list", "version"). Set from the CLI, never from file.
	Command string `yaml:"-"`

	Audio     AudioConfig     `yaml:"audio"`
	Session   SessionConfig   `yaml:"session"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Render    RenderConfig    `yaml:"render"`
	STT       STTConfig       `yaml:"stt"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AudioConfig holds capture device settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index, -1 for default
	SampleRate      float64 `yaml:"sample_rate"`       // Hz; 0 uses the device default
	Channels        int     `yaml:"channels"`          // captured channels, downmixed to mono
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // callback buffer size in frames, power of 2
	LowLatency      bool    `yaml:"low_latency"`       // request low-latency settings from the device
	BufferSeconds   int     `yaml:"buffer_seconds"`    // ring buffer capacity in seconds at native rate
}

// SessionConfig holds push-to-talk session settings.
type SessionConfig struct {
	MinUtterance time.Duration `yaml:"min_utterance"` // shorter utterances report no speech
	MaxUtterance time.Duration `yaml:"max_utterance"` // longer recordings risk overrun
}

// AnalysisConfig holds spectrogram settings.
type AnalysisConfig struct {
	FFTSize         int     `yaml:"fft_size"`          // STFT window, power of 2
	Rows            int     `yaml:"rows"`              // display rows after log binning
	TickRate        int     `yaml:"tick_rate"`         // analysis ticks per second
	Window          string  `yaml:"window"`            // window function name
	NoiseFloorAlpha float64 `yaml:"noise_floor_alpha"` // adaptation weight for the floor estimate
}

// RenderConfig holds renderer pacing settings.
type RenderConfig struct {
	MaxFPS int `yaml:"max_fps"` // frame forwarding cap; excess frames are dropped
}

// STTConfig holds speech-to-text settings.
type STTConfig struct {
	Engine     string        `yaml:"engine"`      // "whisper" (native) or "server" (HTTP)
	ModelPath  string        `yaml:"model_path"`  // ggml model file for the native engine
	ServerURL  string        `yaml:"server_url"`  // whisper-server base URL for the HTTP engine
	Language   string        `yaml:"language"`
	TargetRate int           `yaml:"target_rate"` // model input rate, Hz
	Timeout    time.Duration `yaml:"timeout"`     // per-utterance transcription deadline
	Threads    int           `yaml:"threads"`     // 0 uses the runtime default
}

// ArchiveConfig controls the optional WAV archive of finalized
// utterances. Off by default; audio otherwise lives only in memory.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
}

// TransportConfig holds settings for publishing frames and transcripts.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled"`
	WSListenAddr     string        `yaml:"ws_listen_addr"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// NewConfig returns a Config populated with defaults. LoadConfig layers
// file and environment values on top of this.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		LogFile:  "",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			Channels:        DefaultChannels,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      false,
			BufferSeconds:   DefaultBufferSeconds,
		},
		Session: SessionConfig{
			MinUtterance: DefaultMinUtterance,
			MaxUtterance: DefaultMaxUtterance,
		},
		Analysis: AnalysisConfig{
			FFTSize:         DefaultFFTSize,
			Rows:            DefaultRows,
			TickRate:        DefaultTickRate,
			Window:          "Hann",
			NoiseFloorAlpha: DefaultNoiseFloorAlpha,
		},
		Render: RenderConfig{
			MaxFPS: DefaultMaxFPS,
		},
		STT: STTConfig{
			Engine:     DefaultSTTEngine,
			ModelPath:  DefaultModelPath,
			ServerURL:  DefaultServerURL,
			Language:   DefaultLanguage,
			TargetRate: DefaultTargetRate,
			Timeout:    DefaultSTTTimeout,
			Threads:    0,
		},
		Archive: ArchiveConfig{
			Enabled:   false,
			OutputDir: "./utterances",
		},
		Transport: TransportConfig{
			WSEnabled:        false,
			WSListenAddr:     "127.0.0.1:8765",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9100",
		},
	}
}
