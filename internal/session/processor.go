package session

import (
	"context"
	"time"

	"github.com/rbright/whispa/internal/audio"
)

// Prepared is a gain-adjusted capture that passed the silence check.
type Prepared struct {
	Samples    []float32
	SampleRate int
	Peak       float64
}

// Duration is the captured audio length.
func (p Prepared) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(p.Samples)) * time.Second / time.Duration(p.SampleRate)
}

// Transcription is the processor output consumed by the controller.
type Transcription struct {
	Text    string
	Latency time.Duration
}

// Processor turns a frozen buffer into text.
// Prepare must not perform network I/O; a SilenceError ends the session before Transcribe.
type Processor interface {
	Prepare(*audio.Buffer) (Prepared, error)
	Transcribe(ctx context.Context, prepared Prepared, language string) (Transcription, error)
}

// Injector emits text into the focused application.
type Injector interface {
	Type(context.Context, string) (int, error)
}

// InjectorFunc adapts a function to the Injector interface.
type InjectorFunc func(context.Context, string) (int, error)

func (f InjectorFunc) Type(ctx context.Context, text string) (int, error) {
	return f(ctx, text)
}
