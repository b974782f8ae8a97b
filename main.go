// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"conch/cmd"
	"conch/internal/analysis"
	"conch/internal/audio"
	"conch/internal/config"
	applog "conch/internal/log"
	"conch/internal/metrics"
	"conch/internal/stt"
	"conch/internal/transport"
	"conch/internal/transport/udp"
	"conch/internal/tui"
)

// main wires the pipeline in three phases: parse and validate
// configuration, bring up capture and analysis, then hand the
// terminal to the TUI until it quits or a signal arrives.
func main() {
	// One thread for the audio callback, one for UI and I/O.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg == nil {
		// --help or --version already printed.
		return
	}

	configureLogging(cfg)

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("portaudio: %v", err)
	}
	defer audio.Terminate()

	if cfg.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("list devices: %v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

// configureLogging applies the level and redirects output away from
// the terminal the TUI is about to own.
func configureLogging(cfg *config.Config) {
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	} else if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	if cfg.Command != "" {
		return // one-off commands keep stderr
	}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			applog.SetOutput(f)
			return
		}
		fmt.Fprintf(os.Stderr, "cannot open log file %s: %v\n", cfg.LogFile, err)
	}
	applog.SetOutput(io.Discard)
}

func run(cfg *config.Config) error {
	engine, err := audio.NewEngine(cfg)
	if err != nil {
		return fmt.Errorf("audio engine: %w", err)
	}
	if err := engine.StartInputStream(); err != nil {
		return fmt.Errorf("input stream: %w", err)
	}
	defer engine.StopInputStream()
	applog.Infof("capturing from %q at %.0f Hz", engine.DeviceName(), engine.SampleRate())

	wf, err := analysis.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		return err
	}
	noise := analysis.NewNoiseFloor(cfg.Analysis.NoiseFloorAlpha)
	spectro, err := analysis.NewEngine(cfg.Analysis.FFTSize, cfg.Analysis.Rows,
		engine.SampleRate(), wf, engine.Ring(), noise)
	if err != nil {
		return fmt.Errorf("spectrogram: %w", err)
	}

	sttEngine, err := newSTTEngine(cfg)
	if err != nil {
		return err
	}
	defer sttEngine.Close()

	worker := stt.NewWorker(sttEngine, cfg.STT.Timeout)
	worker.Start()
	defer worker.Stop()

	rate := engine.SampleRate()
	session := audio.NewSession(engine.Ring(),
		int(cfg.Session.MinUtterance.Seconds()*rate),
		int(cfg.Session.MaxUtterance.Seconds()*rate))

	resampler, err := audio.NewResampler(rate, 1, float64(cfg.STT.TargetRate))
	if err != nil {
		return fmt.Errorf("resampler: %w", err)
	}

	var opts tui.Options
	if cfg.Archive.Enabled {
		archive, err := audio.NewArchive(cfg.Archive.OutputDir, int(rate))
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		opts.Archive = archive
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = metrics.New(metrics.Probes{
			SamplesCaptured: func() float64 { return float64(engine.SamplesCaptured()) },
			AnalysisGen:     func() float64 { return float64(spectro.Generation()) },
		})
	}

	var sinks []analysis.FrameSink
	if cfg.Transport.WSEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WSListenAddr)
		defer ws.Close()
		sinks = append(sinks, transport.NewFrameSink(ws))
		opts.Transport = ws
		applog.Infof("websocket stream on %s", cfg.Transport.WSListenAddr)
	}
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return fmt.Errorf("udp sender: %w", err)
		}
		pub, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, spectro)
		if err != nil {
			return fmt.Errorf("udp publisher: %w", err)
		}
		pub.Start()
		defer pub.Close()
		applog.Infof("udp frames to %s", cfg.Transport.UDPTargetAddress)
	}

	model := tui.New(session, resampler, worker, rate, opts)
	program := tea.NewProgram(model, tea.WithAltScreen())

	// The TUI forwarder goes first so the local display never starves
	// behind network sinks.
	sinks = append([]analysis.FrameSink{tui.NewForwarder(program)}, sinks...)
	runner := analysis.NewRunner(spectro, cfg.Analysis.TickRate, cfg.Render.MaxFPS, sinks...)
	runner.Start()
	defer runner.Stop()

	if opts.Metrics != nil {
		// No graceful shutdown; the listener dies with the process.
		go func() {
			if err := opts.Metrics.Serve(cfg.Metrics.ListenAddr); err != nil {
				applog.Errorf("metrics server: %v", err)
			}
		}()
		applog.Infof("metrics on %s", cfg.Metrics.ListenAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		_, err := program.Run()
		return err
	})
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			applog.Infof("received %v, shutting down", sig)
			program.Quit()
		case <-ctx.Done():
		}
		return nil
	})
	return g.Wait()
}

// newSTTEngine builds the transcription backend named in the config.
func newSTTEngine(cfg *config.Config) (stt.Engine, error) {
	switch cfg.STT.Engine {
	case "whisper":
		return stt.NewWhisper(cfg.STT.ModelPath, cfg.STT.Language, cfg.STT.Threads)
	case "server":
		return stt.NewServer(cfg.STT.ServerURL, cfg.STT.Language, cfg.STT.TargetRate), nil
	default:
		return nil, fmt.Errorf("unknown stt engine %q", cfg.STT.Engine)
	}
}
