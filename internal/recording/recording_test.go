package recording

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rbright/whispa/internal/audio"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	device audio.Device
	frames chan audio.Frame

	mu       sync.Mutex
	err      error
	closed   bool
	closeErr error
}

func newFakeStream(depth int) *fakeStream {
	return &fakeStream{
		device: audio.Device{Index: 0, ID: "fake-mic", Available: true, Default: true},
		frames: make(chan audio.Frame, depth),
	}
}

func (s *fakeStream) Device() audio.Device { return s.device }

func (s *fakeStream) Frames() <-chan audio.Frame { return s.frames }

func (s *fakeStream) Overflows() int64 { return 0 }

func (s *fakeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
	return s.closeErr
}

func (s *fakeStream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.closed = true
	s.mu.Unlock()
	close(s.frames)
}

type fakeBackend struct {
	stream  *fakeStream
	openErr error
	params  audio.Params
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) ListDevices(context.Context) ([]audio.Device, error) {
	return []audio.Device{b.stream.device}, nil
}

func (b *fakeBackend) Open(_ context.Context, params audio.Params) (audio.Stream, error) {
	b.params = params
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.stream, nil
}

func TestSessionStopReturnsFramesInArrivalOrder(t *testing.T) {
	stream := newFakeStream(64)
	backend := &fakeBackend{stream: stream}

	session, err := Start(context.Background(), backend, audio.Params{Device: 3, SampleRate: 16000}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, backend.params.Device)
	require.Equal(t, "fake-mic", session.Device().ID)

	for i := 0; i < 20; i++ {
		stream.frames <- audio.Frame{float32(i)}
	}

	buf, err := session.Stop()
	require.NoError(t, err)
	require.True(t, buf.Frozen())

	frames := buf.Frames()
	require.Len(t, frames, 20)
	for i, frame := range frames {
		require.Equal(t, audio.Frame{float32(i)}, frame)
	}
}

func TestSessionStopIsIdempotent(t *testing.T) {
	stream := newFakeStream(4)
	session, err := Start(context.Background(), &fakeBackend{stream: stream}, audio.Params{}, nil)
	require.NoError(t, err)

	first, err := session.Stop()
	require.NoError(t, err)
	second, err := session.Stop()
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestSessionStopWithNoFramesYieldsEmptyBuffer(t *testing.T) {
	session, err := Start(context.Background(), &fakeBackend{stream: newFakeStream(1)}, audio.Params{}, nil)
	require.NoError(t, err)

	buf, err := session.Stop()
	require.NoError(t, err)
	require.Equal(t, 0, buf.Len())
}

func TestSessionReportsMidStreamFailure(t *testing.T) {
	stream := newFakeStream(4)
	session, err := Start(context.Background(), &fakeBackend{stream: stream}, audio.Params{}, nil)
	require.NoError(t, err)

	deviceErr := errors.New("device unplugged")
	stream.fail(deviceErr)

	select {
	case err := <-session.Failed():
		require.ErrorIs(t, err, deviceErr)
	case <-time.After(2 * time.Second):
		t.Fatal("expected failure signal")
	}

	_, err = session.Stop()
	require.ErrorIs(t, err, deviceErr)
}

func TestSessionStreamEndWithoutErrorIsFailure(t *testing.T) {
	stream := newFakeStream(4)
	session, err := Start(context.Background(), &fakeBackend{stream: stream}, audio.Params{}, nil)
	require.NoError(t, err)

	stream.fail(nil)

	select {
	case err := <-session.Failed():
		require.ErrorIs(t, err, ErrStreamEnded)
	case <-time.After(2 * time.Second):
		t.Fatal("expected failure signal")
	}
}

func TestSessionNoFailureAfterStop(t *testing.T) {
	session, err := Start(context.Background(), &fakeBackend{stream: newFakeStream(4)}, audio.Params{}, nil)
	require.NoError(t, err)

	_, err = session.Stop()
	require.NoError(t, err)

	select {
	case err := <-session.Failed():
		t.Fatalf("unexpected failure after stop: %v", err)
	default:
	}
}

func TestStartWrapsOpenError(t *testing.T) {
	openErr := errors.New("no such device")
	_, err := Start(context.Background(), &fakeBackend{stream: newFakeStream(1), openErr: openErr}, audio.Params{}, nil)
	require.ErrorIs(t, err, openErr)
	require.Contains(t, err.Error(), "open fake capture")
}

func TestStartRequiresBackend(t *testing.T) {
	_, err := Start(context.Background(), nil, audio.Params{}, nil)
	require.Error(t, err)
}

func TestDiscardConsumesBuffer(t *testing.T) {
	stream := newFakeStream(4)
	session, err := Start(context.Background(), &fakeBackend{stream: stream}, audio.Params{}, nil)
	require.NoError(t, err)
	stream.frames <- audio.Frame{0.1}

	session.Discard()
	buf, _ := session.Stop()
	_, err = buf.Consume()
	require.ErrorIs(t, err, audio.ErrConsumed)
}
