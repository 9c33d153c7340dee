// Package stt defines the transcription client contract and its OpenAI implementation.
package stt

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Artifact is one encoded audio file handed to a transcription call.
type Artifact struct {
	Path       string
	SampleRate int
	Samples    int
}

// Duration is the audio length the artifact encodes.
func (a Artifact) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(a.Samples) * time.Second / time.Duration(a.SampleRate)
}

// Client converts an artifact into text. An empty language requests detection.
type Client interface {
	Transcribe(ctx context.Context, artifact Artifact, language string) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(context.Context, Artifact, string) (string, error)

func (f ClientFunc) Transcribe(ctx context.Context, artifact Artifact, language string) (string, error) {
	return f(ctx, artifact, language)
}

// TranscriptionError wraps any service or transport failure of one call.
type TranscriptionError struct {
	Provider string
	Err      error
}

func (e *TranscriptionError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("transcription failed: %v", e.Err)
	}
	return fmt.Sprintf("%s transcription failed: %v", e.Provider, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// IsTranscriptionError reports whether err carries a TranscriptionError.
func IsTranscriptionError(err error) bool {
	var target *TranscriptionError
	return errors.As(err, &target)
}
