// Package pipeline turns a frozen capture buffer into transcript text.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/whispa/internal/audio"
	"github.com/rbright/whispa/internal/config"
	"github.com/rbright/whispa/internal/session"
	"github.com/rbright/whispa/internal/stt"
	"github.com/rbright/whispa/internal/transcript"
)

// Processor applies the amplitude policy, writes the WAV artifact, and calls the
// transcription client. It implements session.Processor.
type Processor struct {
	cfg         config.Config
	client      stt.Client
	logger      *slog.Logger
	artifactDir string
}

// NewProcessor constructs a processor. artifactDir holds the short-lived WAV
// artifacts; empty uses the runtime directory.
func NewProcessor(cfg config.Config, client stt.Client, artifactDir string, logger *slog.Logger) *Processor {
	return &Processor{cfg: cfg, client: client, artifactDir: artifactDir, logger: logger}
}

var _ session.Processor = (*Processor)(nil)

// Prepare consumes buf, applies gain, and rejects audio below the silence threshold.
func (p *Processor) Prepare(buf *audio.Buffer) (session.Prepared, error) {
	if buf == nil {
		return session.Prepared{}, &session.SilenceError{Threshold: p.cfg.Audio.SilenceThreshold}
	}

	raw, err := buf.Consume()
	if err != nil {
		return session.Prepared{}, err
	}

	samples := audio.ApplyGain(raw, p.cfg.Audio.Gain)
	peak := audio.Peak(samples)
	if len(samples) == 0 || peak < p.cfg.Audio.SilenceThreshold {
		return session.Prepared{}, &session.SilenceError{
			Peak:      peak,
			Threshold: p.cfg.Audio.SilenceThreshold,
			Samples:   len(samples),
		}
	}

	return session.Prepared{
		Samples:    samples,
		SampleRate: p.cfg.Audio.SampleRate,
		Peak:       peak,
	}, nil
}

// Transcribe writes the artifact, calls the client, and removes the artifact on every path.
func (p *Processor) Transcribe(ctx context.Context, prepared session.Prepared, language string) (session.Transcription, error) {
	if p.client == nil {
		return session.Transcription{}, &stt.TranscriptionError{Err: errors.New("transcription client is not configured")}
	}

	dir, err := p.resolveArtifactDir()
	if err != nil {
		return session.Transcription{}, err
	}

	path, err := audio.WriteTempWAV(dir, prepared.Samples, prepared.SampleRate)
	if err != nil {
		return session.Transcription{}, fmt.Errorf("write audio artifact: %w", err)
	}
	defer func() {
		if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			p.logWarn("unable to remove audio artifact", "path", path, "error", rerr.Error())
		}
	}()

	p.writeDebugAudio(path)

	artifact := stt.Artifact{Path: path, SampleRate: prepared.SampleRate, Samples: len(prepared.Samples)}

	started := time.Now()
	text, err := p.client.Transcribe(ctx, artifact, language)
	latency := time.Since(started)
	if err != nil {
		if !stt.IsTranscriptionError(err) {
			err = &stt.TranscriptionError{Err: err}
		}
		return session.Transcription{Latency: latency}, err
	}

	return session.Transcription{
		Text: transcript.Normalize(text, transcript.Options{
			TrailingSpace: p.cfg.Typing.TrailingSpace,
			SingleLine:    p.cfg.Typing.SingleLine,
		}),
		Latency: latency,
	}, nil
}

func (p *Processor) resolveArtifactDir() (string, error) {
	if strings.TrimSpace(p.artifactDir) != "" {
		return p.artifactDir, nil
	}
	return ResolveRuntimeDir()
}

// ResolveRuntimeDir returns $XDG_RUNTIME_DIR/whispa, falling back to the temp dir.
func ResolveRuntimeDir() (string, error) {
	base := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "whispa"), nil
}

func (p *Processor) logWarn(message string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(message, args...)
}

// createDebugFile creates timestamped debug artifacts under state/whispa/debug.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "whispa", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// resolveStateDir returns XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}

// writeDebugAudio copies the artifact when debug.audio_dump is enabled.
func (p *Processor) writeDebugAudio(artifactPath string) {
	if !p.cfg.Debug.EnableAudioDump {
		return
	}

	src, err := os.Open(artifactPath)
	if err != nil {
		p.logWarn(fmt.Sprintf("unable to read artifact for debug dump: %v", err))
		return
	}
	defer src.Close()

	dst, err := createDebugFile("audio", "wav")
	if err != nil {
		p.logWarn(fmt.Sprintf("unable to create debug audio dump: %v", err))
		return
	}
	defer dst.Close()

	if _, err := dst.ReadFrom(src); err != nil {
		p.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
	}
}
