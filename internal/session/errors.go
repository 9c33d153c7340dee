package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSilence matches every SilenceError via errors.Is.
	ErrSilence = errors.New("audio too quiet")
	// ErrEmptyTranscript indicates the service returned no usable text.
	ErrEmptyTranscript = errors.New("no text transcribed")
	// ErrBusy rejects a toggle while transcription or typing is in flight.
	ErrBusy = errors.New("busy")
)

// DeviceError reports a capture stream that failed to open or failed mid-stream.
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("audio device error: %v", e.Err)
	}
	return fmt.Sprintf("audio device %s: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// SilenceError reports a buffer whose post-gain peak is below the threshold.
type SilenceError struct {
	Peak      float64
	Threshold float64
	Samples   int
}

func (e *SilenceError) Error() string {
	if e.Samples == 0 {
		return "audio too quiet: no samples captured"
	}
	return fmt.Sprintf("audio too quiet: peak %.4f below threshold %.4f", e.Peak, e.Threshold)
}

func (e *SilenceError) Is(target error) bool { return target == ErrSilence }

// TypingError wraps a keystroke injection failure.
type TypingError struct {
	Typed int
	Err   error
}

func (e *TypingError) Error() string {
	return fmt.Sprintf("typing failed after %d characters: %v", e.Typed, e.Err)
}

func (e *TypingError) Unwrap() error { return e.Err }
