package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/whispa/internal/fsm"
	"github.com/rbright/whispa/internal/stt"
)

// StatusKind classifies a status line for indicator backends.
type StatusKind string

const (
	KindReady        StatusKind = "ready"
	KindRecording    StatusKind = "recording"
	KindProcessing   StatusKind = "processing"
	KindTranscribing StatusKind = "transcribing"
	KindTyping       StatusKind = "typing"
	KindError        StatusKind = "error"
)

// Status is the human readable state published on every transition.
type Status struct {
	State fsm.State
	Kind  StatusKind
	Text  string
}

func statusFor(state fsm.State, kind StatusKind) Status {
	var text string
	switch kind {
	case KindReady:
		text = "Ready"
	case KindRecording:
		text = "Recording…"
	case KindProcessing:
		text = "Processing…"
	case KindTranscribing:
		text = "Transcribing…"
	case KindTyping:
		text = "Typing text…"
	}
	return Status{State: state, Kind: kind, Text: text}
}

// ReadyStatus is the idle status shown before the first session.
func ReadyStatus() Status {
	return statusFor(fsm.StateIdle, KindReady)
}

// ErrorStatus maps a session failure to the text shown to the user.
func ErrorStatus(err error) Status {
	status := Status{State: fsm.StateIdle, Kind: KindError}

	var transcriptionErr *stt.TranscriptionError
	switch {
	case errors.Is(err, ErrSilence):
		status.Text = "Audio too quiet"
	case errors.Is(err, ErrEmptyTranscript):
		status.Text = "No text transcribed"
	case errors.As(err, &transcriptionErr):
		status.Text = fmt.Sprintf("Transcription error: %v", transcriptionErr.Err)
	default:
		status.Text = fmt.Sprintf("Error: %v", err)
	}
	return status
}

// StatusSink receives every published status. Implementations must not block
// for long; they run on the controller goroutines.
type StatusSink interface {
	Publish(context.Context, Status)
}

// StatusSinkFunc adapts a function to StatusSink.
type StatusSinkFunc func(context.Context, Status)

func (f StatusSinkFunc) Publish(ctx context.Context, status Status) { f(ctx, status) }

// Sinks fans one status out to several sinks in order.
type Sinks []StatusSink

func (s Sinks) Publish(ctx context.Context, status Status) {
	for _, sink := range s {
		if sink != nil {
			sink.Publish(ctx, status)
		}
	}
}
