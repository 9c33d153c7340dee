// Package audio handles device discovery, capture streams, and the sample buffer/encoding contract.
package audio

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrFrozen indicates an append after the buffer left the recording phase.
	ErrFrozen = errors.New("audio buffer is frozen")
	// ErrConsumed indicates a second read of a buffer that is handed off exactly once.
	ErrConsumed = errors.New("audio buffer already consumed")
)

// Frame is one block of mono float32 samples in capture order.
type Frame []float32

// Buffer accumulates frames in arrival order while recording.
type Buffer struct {
	mu       sync.Mutex
	frames   []Frame
	samples  int
	frozen   bool
	consumed bool
}

// NewBuffer returns an empty, mutable buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds one frame at the tail. Empty frames are ignored.
func (b *Buffer) Append(frame Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return ErrFrozen
	}
	if len(frame) == 0 {
		return nil
	}
	b.frames = append(b.frames, frame)
	b.samples += len(frame)
	return nil
}

// Freeze ends the mutable phase; later appends fail with ErrFrozen.
func (b *Buffer) Freeze() {
	b.mu.Lock()
	b.frozen = true
	b.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (b *Buffer) Frozen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frozen
}

// Frames returns a snapshot of the frame sequence.
func (b *Buffer) Frames() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Frame, len(b.frames))
	copy(out, b.frames)
	return out
}

// Samples returns the concatenation of all frames without consuming the buffer.
func (b *Buffer) Samples() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float32, 0, b.samples)
	for _, frame := range b.frames {
		out = append(out, frame...)
	}
	return out
}

// Len returns the total sample count across frames.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.samples
}

// Duration converts the sample count into wall time at sampleRate.
func (b *Buffer) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Len()) * time.Second / time.Duration(sampleRate)
}

// Consume freezes the buffer, returns the concatenated samples, and releases the frames.
// Only the first call succeeds.
func (b *Buffer) Consume() ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consumed {
		return nil, ErrConsumed
	}
	b.frozen = true
	b.consumed = true

	out := make([]float32, 0, b.samples)
	for _, frame := range b.frames {
		out = append(out, frame...)
	}
	b.frames = nil
	return out, nil
}
