// SPDX-License-Identifier: MIT

// Package cmd parses the command line. Flags override values loaded
// from the config file and the environment.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"conch/internal/config"
	"conch/pkg/build"
)

// ParseArgs builds the cobra command tree, executes it against
// os.Args and returns the resolved configuration. A flag only
// overrides the loaded value when it was set explicitly.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.Resolve()

	var (
		cfg        *config.Config
		configPath string

		flagDevice     int
		flagChannels   int
		flagSampleRate float64
		flagFrames     int
		flagLowLat     bool
		flagModel      string
		flagServer     string
		flagEngine     string
		flagVerbose    bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Push-to-talk voice capture with live spectrogram and transcription",
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("device") {
				cfg.Audio.InputDevice = flagDevice
			}
			if flags.Changed("channels") {
				cfg.Audio.Channels = flagChannels
			}
			if flags.Changed("sample-rate") {
				cfg.Audio.SampleRate = flagSampleRate
			}
			if flags.Changed("frames-per-buffer") {
				cfg.Audio.FramesPerBuffer = flagFrames
			}
			if flags.Changed("low-latency") {
				cfg.Audio.LowLatency = flagLowLat
			}
			if flags.Changed("model") {
				cfg.STT.ModelPath = flagModel
			}
			if flags.Changed("stt-server") {
				cfg.STT.ServerURL = flagServer
			}
			if flags.Changed("stt-engine") {
				cfg.STT.Engine = flagEngine
			}
			if flagVerbose {
				cfg.Debug = true
			}
			return cfg.Validate()
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			cfg = config.NewConfig()
			cfg.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the YAML config file (default conch.yaml if present)")

	// Audio device configuration
	rootCmd.PersistentFlags().IntVarP(&flagDevice, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&flagChannels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture (downmixed to mono)")
	rootCmd.PersistentFlags().Float64VarP(&flagSampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate in Hertz (0 uses the device default)")
	rootCmd.PersistentFlags().IntVarP(&flagFrames, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Frames per callback buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&flagLowLat, "low-latency", "l", false,
		"Request low latency settings from the device")

	// Transcription configuration
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", config.DefaultModelPath,
		"Path to the ggml model file for the native engine")
	rootCmd.PersistentFlags().StringVar(&flagServer, "stt-server", config.DefaultServerURL,
		"whisper-server base URL for the HTTP engine")
	rootCmd.PersistentFlags().StringVar(&flagEngine, "stt-engine", config.DefaultSTTEngine,
		"Transcription engine: whisper (native) or server (HTTP)")

	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	// cfg stays nil for --help and --version, which print and exit the
	// command tree without running anything.
	return cfg, nil
}
