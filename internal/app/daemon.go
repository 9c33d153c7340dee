package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rbright/whispa/internal/audio"
	"github.com/rbright/whispa/internal/config"
	"github.com/rbright/whispa/internal/hotkey"
	"github.com/rbright/whispa/internal/indicator"
	"github.com/rbright/whispa/internal/ipc"
	"github.com/rbright/whispa/internal/metrics"
	"github.com/rbright/whispa/internal/pipeline"
	"github.com/rbright/whispa/internal/session"
	"github.com/rbright/whispa/internal/settings"
	"github.com/rbright/whispa/internal/statusfile"
	"github.com/rbright/whispa/internal/stt"
	"github.com/rbright/whispa/internal/typing"
)

const (
	socketPingTimeout = 180 * time.Millisecond
	socketRetries      = 8
)

// commandRun starts the dictation daemon and blocks until quit or interrupt.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	runtimeDir, err := ipc.RuntimeDir()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	settingsPath, err := settings.Path()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	selection, err := settings.Load(settingsPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: %v; using defaults\n", err)
		logger.Warn("settings unreadable", "path", settingsPath, "error", err.Error())
	}

	backend, client, injector, err := r.collaborators(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	artifactDir, err := pipeline.ResolveRuntimeDir()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	m := metrics.New()
	statusPath := statusfile.Path(runtimeDir)
	notifier := indicator.New(cfg.Indicator, logger)

	ctrl, err := session.NewController(session.Options{
		Backend: backend,
		Params: audio.Params{
			SampleRate: cfg.Audio.SampleRate,
			BlockSize:  cfg.Audio.BlockSize,
			QueueDepth: cfg.Audio.QueueDepth,
		},
		Processor: pipeline.NewProcessor(cfg, client, artifactDir, logger),
		Injector:  injector,
		Settings:  selection,
		Persist: func(s settings.Settings) error {
			return settings.Save(settingsPath, s)
		},
		Status: session.Sinks{statusFileSink(statusPath, logger), notifier},
		OnResult: func(res session.Result) {
			logSessionResult(logger, res)
			m.ObserveSession(res.Outcome(), res.AudioDuration, res.TranscriptionLatency, res.Typed)
		},
		Logger: logger,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, socketPingTimeout, socketRetries, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: whispa is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = os.Remove(socketPath) }()
	defer func() { _ = os.Remove(statusPath) }()

	statusFileSink(statusPath, logger).Publish(ctx, session.ReadyStatus())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var background sync.WaitGroup
	background.Add(1)
	go func() {
		defer background.Done()
		server := &ipc.Server{Handler: ctrl, Logger: logger}
		if err := server.Serve(runCtx, listener); err != nil {
			logger.Error("ipc server stopped", "error", err.Error())
		}
	}()

	if cfg.Hotkey.Enable {
		listenerHotkey, err := hotkey.NewListener(
			strings.ToLower(strings.TrimSpace(cfg.Hotkey.Mode)),
			cfg.Hotkey.Toggle,
			cfg.Hotkey.Quit,
			func(sig hotkey.Signal) {
				if !ctrl.Signal(sessionSignal(sig)) {
					logger.Warn("signal dropped; queue full", "signal", sig.String())
				}
			},
			logger,
		)
		if err != nil {
			logger.Error("hotkeys unavailable", "error", err.Error())
			fmt.Fprintf(r.Stderr, "warning: hotkeys unavailable: %v\n", err)
		} else {
			background.Add(1)
			go func() {
				defer background.Done()
				if err := listenerHotkey.Run(runCtx); err != nil {
					logger.Error("hotkey listener stopped", "error", err.Error())
				}
			}()
		}
	}

	if listen := strings.TrimSpace(cfg.Metrics.Listen); listen != "" {
		background.Add(1)
		go func() {
			defer background.Done()
			if err := m.Serve(runCtx, listen, logger); err != nil {
				logger.Error("metrics server stopped", "error", err.Error())
			}
		}()
	}

	logger.Info("daemon ready",
		"socket", socketPath,
		"status", statusPath,
		"audio_backend", backend.Name(),
		"hotkeys", cfg.Hotkey.Enable,
	)

	runErr := ctrl.Run(runCtx)
	cancel()
	background.Wait()
	notifier.Wait()

	if runErr != nil {
		logger.Error("session loop failed", "error", runErr.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		return 1
	}
	logger.Info("daemon stopped")
	return 0
}

// collaborators resolves the audio backend, transcription client and
// injector, preferring the ones set on the runner.
func (r Runner) collaborators(cfg config.Config, logger *slog.Logger) (audio.Backend, stt.Client, session.Injector, error) {
	backend := r.Backend
	if backend == nil {
		var err error
		backend, err = audio.NewBackend(cfg.Audio.Backend)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	client := r.Client
	if client == nil {
		key, err := config.ResolveAPIKey(cfg.Transcription)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("api key resolved", "source", key.Source)
		openai, err := stt.NewOpenAI(stt.OpenAIConfig{
			APIKey:  key.Value,
			BaseURL: cfg.Transcription.BaseURL,
			Model:   cfg.Transcription.Model,
			Prompt:  cfg.Transcription.Prompt,
			Timeout: time.Duration(cfg.Transcription.TimeoutMS) * time.Millisecond,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		client = openai
	}

	injector := r.Injector
	if injector == nil {
		typer, err := typing.New(cfg.Typing, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		injector = typer
	}

	return backend, client, injector, nil
}

func statusFileSink(path string, logger *slog.Logger) session.StatusSink {
	return session.StatusSinkFunc(func(_ context.Context, status session.Status) {
		err := statusfile.Write(path, statusfile.Snapshot{
			State:     string(status.State),
			Kind:      string(status.Kind),
			Text:      status.Text,
			UpdatedAt: time.Now().UTC(),
		})
		if err != nil {
			logger.Warn("status file write failed", "path", path, "error", err.Error())
		}
	})
}

func sessionSignal(sig hotkey.Signal) session.Signal {
	switch sig {
	case hotkey.SignalPress:
		return session.SignalPress
	case hotkey.SignalRelease:
		return session.SignalRelease
	case hotkey.SignalQuit:
		return session.SignalQuit
	default:
		return session.SignalToggle
	}
}

func logSessionResult(logger *slog.Logger, res session.Result) {
	attrs := []any{
		"state", string(res.State),
		"outcome", res.Outcome(),
		"started_at", res.StartedAt.Format(time.RFC3339Nano),
		"finished_at", res.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
		"audio_device", res.AudioDevice,
		"samples_captured", res.SamplesCaptured,
		"audio_duration_ms", res.AudioDuration.Milliseconds(),
		"transcript_length", len([]rune(res.Transcript)),
		"typed", res.Typed,
		"transcription_latency_ms", res.TranscriptionLatency.Milliseconds(),
	}
	if res.Err != nil {
		attrs = append(attrs, "error", res.Err.Error())
		logger.Error("session failed", attrs...)
		return
	}
	logger.Info("session complete", attrs...)
}
