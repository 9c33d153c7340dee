// Package recording owns one capture stream lifetime and the buffer it fills.
package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/whispa/internal/audio"
)

// ErrStreamEnded reports a capture stream that closed before Stop without a device error.
var ErrStreamEnded = errors.New("capture stream ended unexpectedly")

// Session drains one capture stream into an audio.Buffer until Stop.
type Session struct {
	logger *slog.Logger
	stream audio.Stream
	buffer *audio.Buffer

	startedAt time.Time
	stopping  atomic.Bool
	done      chan struct{}
	failed    chan error
	stopOnce  sync.Once
	stopErr   error
}

// Start opens a stream on backend and begins draining frames in arrival order.
func Start(ctx context.Context, backend audio.Backend, params audio.Params, logger *slog.Logger) (*Session, error) {
	if backend == nil {
		return nil, errors.New("audio backend is required")
	}

	stream, err := backend.Open(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("open %s capture: %w", backend.Name(), err)
	}

	s := &Session{
		logger:    logger,
		stream:    stream,
		buffer:    audio.NewBuffer(),
		startedAt: time.Now(),
		done:      make(chan struct{}),
		failed:    make(chan error, 1),
	}
	go s.drain()

	if logger != nil {
		logger.Debug("recording started",
			"backend", backend.Name(),
			"audio.device", audio.DescribeDevice(stream.Device()),
			"audio.device_index", stream.Device().Index,
		)
	}
	return s, nil
}

func (s *Session) drain() {
	defer close(s.done)

	for frame := range s.stream.Frames() {
		if err := s.buffer.Append(frame); err != nil {
			// Frozen only after Stop has begun; remaining frames are discarded.
			continue
		}
	}

	if s.stopping.Load() {
		return
	}

	err := s.stream.Err()
	if err == nil {
		err = ErrStreamEnded
	}
	s.failed <- err
}

// Device returns the device the stream was opened on.
func (s *Session) Device() audio.Device { return s.stream.Device() }

// StartedAt returns when the stream was opened.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Failed delivers at most one mid-stream failure. It never fires after Stop.
func (s *Session) Failed() <-chan error { return s.failed }

// Stop closes the stream, waits for every delivered frame to be appended,
// and returns the frozen buffer.
func (s *Session) Stop() (*audio.Buffer, error) {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		closeErr := s.stream.Close()
		<-s.done
		s.buffer.Freeze()

		if err := s.stream.Err(); err != nil {
			s.stopErr = err
		} else if closeErr != nil {
			s.stopErr = closeErr
		}

		if s.logger != nil {
			s.logger.Debug("recording stopped",
				"audio.samples", s.buffer.Len(),
				"audio.overflows", s.stream.Overflows(),
				"duration_ms", time.Since(s.startedAt).Milliseconds(),
			)
		}
	})
	return s.buffer, s.stopErr
}

// Discard stops the stream and drops the captured audio.
func (s *Session) Discard() {
	buf, _ := s.Stop()
	_, _ = buf.Consume()
}
