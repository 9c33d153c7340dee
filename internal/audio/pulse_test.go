package audio

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"reflect"
	"testing"
	"time"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestPulseListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := Pulse{}.ListDevices(context.Background())
	require.Error(t, err)
}

func TestPulseOpenFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := Pulse{}.Open(context.Background(), Params{Device: DefaultDeviceIndex})
	require.Error(t, err)
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(99)", sourceStateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{})) // no ports => available

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, available, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	notAvailable := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, notAvailable, []sourcePort{{name: "mic", available: 1}})
	require.False(t, sourceAvailable(notAvailable))
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	called := false
	writer := writerFunc(func(b []byte) (int, error) {
		called = true
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, called)
}

func TestDecodeFloat32LEDropsPartialSample(t *testing.T) {
	raw := float32LE(0.25, -0.5)
	raw = append(raw, 0x01, 0x02)

	frame := decodeFloat32LE(raw)
	require.Equal(t, Frame{0.25, -0.5}, frame)
	require.Nil(t, decodeFloat32LE([]byte{1, 2, 3}))
}

func TestPulseCaptureOnPCMChunkingAndCloseFlushesPending(t *testing.T) {
	capture := newTestPulseCapture(4, 8)

	samples := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	input := float32LE(samples...)

	n, err := capture.onPCM(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)

	first := <-capture.Frames()
	require.Equal(t, Frame{0.1, 0.2, 0.3, 0.4}, first)

	require.NoError(t, capture.Close())

	remaining, ok := <-capture.Frames()
	require.True(t, ok)
	require.Equal(t, Frame{0.5, 0.6}, remaining)

	_, ok = <-capture.Frames()
	require.False(t, ok)
}

func TestPulseCaptureCloseWaitsForRoomToFlushTail(t *testing.T) {
	capture := newTestPulseCapture(2, 1)

	_, err := capture.onPCM(float32LE(0.1, 0.2, 0.3))
	require.NoError(t, err)

	closed := make(chan error, 1)
	go func() { closed <- capture.Close() }()

	select {
	case <-closed:
		t.Fatal("close returned while the queue was still full")
	case <-time.After(50 * time.Millisecond):
	}

	var got []Frame
	for frame := range capture.Frames() {
		got = append(got, frame)
	}
	require.NoError(t, <-closed)
	require.Equal(t, []Frame{{0.1, 0.2}, {0.3}}, got)
}

func TestPulseCaptureOnPCMPreservesArrivalOrder(t *testing.T) {
	capture := newTestPulseCapture(2, 16)

	for i := 0; i < 5; i++ {
		_, err := capture.onPCM(float32LE(float32(i), float32(i)+0.5))
		require.NoError(t, err)
	}
	require.NoError(t, capture.Close())

	var got []float32
	for frame := range capture.Frames() {
		got = append(got, frame...)
	}
	require.Equal(t, []float32{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5}, got)
}

func TestPulseCaptureOnPCMReturnsEOFWhenStopped(t *testing.T) {
	capture := newTestPulseCapture(4, 1)
	close(capture.stopCh)

	n, err := capture.onPCM([]byte{1, 2, 3, 4})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(0), capture.bytes.Load())
}

func TestPulseCaptureCloseIsIdempotent(t *testing.T) {
	capture := newTestPulseCapture(4, 1)
	capture.device = Device{ID: "mic-1", Description: "Mic"}
	require.Equal(t, "mic-1", capture.Device().ID)

	require.NoError(t, capture.Close())
	require.NoError(t, capture.Close())
	require.NoError(t, capture.Err())

	_, ok := <-capture.Frames()
	require.False(t, ok)
}

func TestNewBackend(t *testing.T) {
	backend, err := NewBackend("")
	require.NoError(t, err)
	require.Equal(t, BackendPulse, backend.Name())

	backend, err = NewBackend(" PortAudio ")
	require.NoError(t, err)
	require.Equal(t, BackendPortAudio, backend.Name())

	_, err = NewBackend("alsa")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown audio backend")
}

func newTestPulseCapture(blockSize int, queue int) *pulseCapture {
	return &pulseCapture{
		frameBytes: blockSize * float32Bytes,
		frames:     make(chan Frame, queue),
		stopCh:     make(chan struct{}),
	}
}

func float32LE(samples ...float32) []byte {
	out := make([]byte, len(samples)*float32Bytes)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*float32Bytes:], math.Float32bits(s))
	}
	return out
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))

	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}

	replyValue := reflect.ValueOf(reply).Elem().FieldByName("Ports")
	replyValue.Set(sliceValue)
}
