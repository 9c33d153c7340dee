package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const float32Bytes = 4

// Pulse captures from PulseAudio/PipeWire sources.
type Pulse struct{}

func (Pulse) Name() string { return BackendPulse }

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("whispa"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns Pulse input sources in server enumeration order.
func (Pulse) ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			Index:       len(devices),
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Channels:    int(source.Channels),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// Open starts a mono float32 record stream on the source at params.Device.
func (p Pulse) Open(ctx context.Context, params Params) (Stream, error) {
	params = params.withDefaults()

	devices, err := p.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	selected, err := ResolveDevice(devices, params.Device)
	if err != nil {
		return nil, err
	}

	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	capture := &pulseCapture{
		device:     selected,
		client:     client,
		frameBytes: params.BlockSize * float32Bytes,
		frames:     make(chan Frame, params.QueueDepth),
		stopCh:     make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatFloat32LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(params.SampleRate),
		pulse.RecordBufferFragmentSize(uint32(capture.frameBytes)),
		pulse.RecordMediaName("whispa dictation"),
	)
	if err != nil {
		_ = capture.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Close()
		case <-capture.stopCh:
		}
	}()

	return capture, nil
}

// pulseCapture turns raw float32LE bytes from Pulse into fixed-size frames.
type pulseCapture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	frameBytes int
	frames     chan Frame
	stopCh     chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

func (c *pulseCapture) Device() Device { return c.device }

func (c *pulseCapture) Frames() <-chan Frame { return c.frames }

func (c *pulseCapture) Err() error { return nil }

func (c *pulseCapture) Overflows() int64 { return 0 }

// Close halts the stream, flushes the residual partial frame, and closes Frames exactly once.
func (c *pulseCapture) Close() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	// Consumers drain Frames until it closes, so the tail send waits for room.
	if tail := decodeFloat32LE(pending); len(tail) > 0 {
		c.frames <- tail
	}

	close(c.frames)
	return nil
}

// onPCM receives raw Pulse bytes and emits frameBytes-sized frames in arrival order.
func (c *pulseCapture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-c.stopCh:
		return 0, io.EOF
	default:
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as c.stopped so Close never races Wait.
	c.inflight.Add(1)

	c.pending = append(c.pending, buffer...)
	frames := make([]Frame, 0, len(c.pending)/c.frameBytes)
	for len(c.pending) >= c.frameBytes {
		frames = append(frames, decodeFloat32LE(c.pending[:c.frameBytes]))
		c.pending = c.pending[c.frameBytes:]
	}
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))

	for _, frame := range frames {
		select {
		case <-c.stopCh:
			return 0, io.EOF
		case c.frames <- frame:
		}
	}

	return len(buffer), nil
}

// decodeFloat32LE converts whole little-endian float32 samples; a trailing partial sample is dropped.
func decodeFloat32LE(raw []byte) Frame {
	n := len(raw) / float32Bytes
	if n == 0 {
		return nil
	}
	out := make(Frame, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*float32Bytes:]))
	}
	return out
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
