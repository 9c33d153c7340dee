package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rbright/whispa/internal/audio"
	"github.com/rbright/whispa/internal/fsm"
	"github.com/rbright/whispa/internal/settings"
	"github.com/rbright/whispa/internal/stt"
	"github.com/stretchr/testify/require"
)

func TestResultOutcome(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "typed", want: OutcomeTyped},
		{name: "cancelled", err: context.Canceled, want: OutcomeCancelled},
		{name: "silence", err: &SilenceError{Peak: 0.001, Threshold: 0.01, Samples: 16000}, want: OutcomeSilence},
		{name: "empty", err: ErrEmptyTranscript, want: OutcomeEmpty},
		{name: "transcription", err: &stt.TranscriptionError{Provider: "openai", Err: errors.New("boom")}, want: OutcomeTranscriptionFailed},
		{name: "device", err: &DeviceError{Device: "default", Err: errors.New("gone")}, want: OutcomeDeviceFailed},
		{name: "typing", err: &TypingError{Typed: 3, Err: errors.New("x11")}, want: OutcomeTypingFailed},
		{name: "other", err: errors.New("disk full"), want: OutcomeFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Result{Err: tc.err}.Outcome())
		})
	}
}

func TestErrorStatusText(t *testing.T) {
	require.Equal(t, "Audio too quiet", ErrorStatus(&SilenceError{Samples: 0}).Text)
	require.Equal(t, "No text transcribed", ErrorStatus(ErrEmptyTranscript).Text)

	wrapped := fmt.Errorf("transcribe: %w", &stt.TranscriptionError{Provider: "openai", Err: errors.New("401 unauthorized")})
	require.Equal(t, "Transcription error: 401 unauthorized", ErrorStatus(wrapped).Text)

	status := ErrorStatus(&DeviceError{Device: "#2", Err: errors.New("no such source")})
	require.Equal(t, "Error: audio device #2: no such source", status.Text)
	require.Equal(t, KindError, status.Kind)
	require.Equal(t, fsm.StateIdle, status.State)
}

func TestSilenceErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("prepare: %w", &SilenceError{Peak: 0.002, Threshold: 0.01, Samples: 800})
	require.ErrorIs(t, err, ErrSilence)
	require.Contains(t, err.Error(), "peak 0.0020 below threshold 0.0100")
	require.Equal(t, "audio too quiet: no samples captured", (&SilenceError{}).Error())
}

func TestSinksFanOutInOrder(t *testing.T) {
	var got []string
	record := func(name string) StatusSink {
		return StatusSinkFunc(func(_ context.Context, status Status) {
			got = append(got, name+":"+status.Text)
		})
	}

	Sinks{record("file"), nil, record("indicator")}.Publish(context.Background(), ReadyStatus())
	require.Equal(t, []string{"file:Ready", "indicator:Ready"}, got)
}

func TestNewControllerRequiresCollaborators(t *testing.T) {
	_, err := NewController(Options{})
	require.ErrorContains(t, err, "audio backend is required")

	_, err = NewController(Options{Backend: stubBackend{}})
	require.ErrorContains(t, err, "processor is required")

	_, err = NewController(Options{Backend: stubBackend{}, Processor: stubProcessor{}})
	require.ErrorContains(t, err, "injector is required")
}

func TestControllerTypingFailureKeepsPartialCount(t *testing.T) {
	results := make(chan Result, 1)
	ctrl, err := NewController(Options{
		Backend:   stubBackend{},
		Params:    audio.Params{SampleRate: 16000},
		Processor: stubProcessor{text: "hello"},
		Injector: InjectorFunc(func(context.Context, string) (int, error) {
			return 2, errors.New("display closed")
		}),
		Settings: settings.Default(),
		OnResult: func(r Result) { results <- r },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, ctrl.Submit(ctx, SignalToggle))
	require.NoError(t, ctrl.Submit(ctx, SignalToggle))

	select {
	case result := <-results:
		var typingErr *TypingError
		require.ErrorAs(t, result.Err, &typingErr)
		require.Equal(t, 2, typingErr.Typed)
		require.Equal(t, 2, result.Typed)
		require.Equal(t, "hello", result.Transcript)
		require.Equal(t, OutcomeTypingFailed, result.Outcome())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
	}
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Equal(t, "Error: typing failed after 2 characters: display closed", ctrl.Status().Text)
}

func TestSignalString(t *testing.T) {
	require.Equal(t, "toggle", SignalToggle.String())
	require.Equal(t, "release", SignalRelease.String())
	require.Equal(t, "signal(42)", Signal(42).String())
}

type stubBackend struct{}

func (stubBackend) Name() string { return "stub" }

func (stubBackend) ListDevices(context.Context) ([]audio.Device, error) { return nil, nil }

func (stubBackend) Open(context.Context, audio.Params) (audio.Stream, error) {
	return &stubStream{frames: make(chan audio.Frame)}, nil
}

type stubStream struct {
	frames chan audio.Frame
	closed bool
}

func (s *stubStream) Device() audio.Device { return audio.Device{ID: "stub"} }

func (s *stubStream) Frames() <-chan audio.Frame { return s.frames }

func (s *stubStream) Err() error { return nil }

func (s *stubStream) Overflows() int64 { return 0 }

func (s *stubStream) Close() error {
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
	return nil
}

type stubProcessor struct {
	text string
}

func (stubProcessor) Prepare(buf *audio.Buffer) (Prepared, error) {
	_, _ = buf.Consume()
	return Prepared{Samples: []float32{0.5}, SampleRate: 16000, Peak: 0.5}, nil
}

func (p stubProcessor) Transcribe(context.Context, Prepared, string) (Transcription, error) {
	return Transcription{Text: p.text, Latency: time.Millisecond}, nil
}
