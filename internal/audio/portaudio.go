package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// PortAudio captures through the PortAudio host APIs (ALSA, JACK, CoreAudio, WASAPI).
type PortAudio struct{}

func (PortAudio) Name() string { return BackendPortAudio }

// ListDevices returns input-capable PortAudio devices; Index is the position in that list.
func (PortAudio) ListDevices(_ context.Context) ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	devices, _, err := listPortAudioInputs()
	return devices, err
}

// listPortAudioInputs must run between Initialize and Terminate.
func listPortAudioInputs() ([]Device, []*portaudio.DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, nil, fmt.Errorf("list portaudio devices: %w", err)
	}

	defaultName := ""
	if info, err := portaudio.DefaultInputDevice(); err == nil && info != nil {
		defaultName = info.Name
	}

	devices := make([]Device, 0, len(infos))
	inputs := make([]*portaudio.DeviceInfo, 0, len(infos))
	for _, info := range infos {
		if info == nil || info.MaxInputChannels <= 0 {
			continue
		}
		hostAPI := ""
		if info.HostApi != nil {
			hostAPI = info.HostApi.Name
		}
		devices = append(devices, Device{
			Index:       len(devices),
			ID:          info.Name,
			Description: hostAPI,
			State:       "available",
			Channels:    info.MaxInputChannels,
			Available:   true,
			Default:     info.Name == defaultName,
		})
		inputs = append(inputs, info)
	}
	return devices, inputs, nil
}

// Open starts a blocking-read mono float32 stream on the device at params.Device.
func (PortAudio) Open(ctx context.Context, params Params) (Stream, error) {
	params = params.withDefaults()

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	devices, infos, err := listPortAudioInputs()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}
	selected, err := ResolveDevice(devices, params.Device)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}

	in := make([]float32, params.BlockSize)
	sp := portaudio.LowLatencyParameters(infos[selected.Index], nil)
	sp.Input.Channels = 1
	sp.SampleRate = float64(params.SampleRate)
	sp.FramesPerBuffer = len(in)

	stream, err := portaudio.OpenStream(sp, in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open portaudio stream on %q: %w", selected.ID, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start portaudio stream: %w", err)
	}

	capture := &portAudioCapture{
		device: selected,
		stream: stream,
		in:     in,
		frames: make(chan Frame, params.QueueDepth),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go capture.readLoop()

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Close()
		case <-capture.stopCh:
		}
	}()

	return capture, nil
}

type portAudioCapture struct {
	device Device
	stream *portaudio.Stream
	in     []float32

	frames chan Frame
	stopCh chan struct{}
	done   chan struct{}

	stopOnce  sync.Once
	closeErr  error
	mu        sync.Mutex
	err       error
	overflows atomic.Int64
}

func (c *portAudioCapture) Device() Device { return c.device }

func (c *portAudioCapture) Frames() <-chan Frame { return c.frames }

func (c *portAudioCapture) Overflows() int64 { return c.overflows.Load() }

func (c *portAudioCapture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *portAudioCapture) readLoop() {
	defer close(c.done)
	defer close(c.frames)

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		if err := c.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				c.overflows.Add(1)
				continue
			}
			c.mu.Lock()
			c.err = fmt.Errorf("read portaudio stream: %w", err)
			c.mu.Unlock()
			return
		}

		frame := make(Frame, len(c.in))
		copy(frame, c.in)

		select {
		case <-c.stopCh:
			return
		case c.frames <- frame:
		}
	}
}

// Close stops the read loop before tearing down the stream so Read never races Stop.
func (c *portAudioCapture) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		<-c.done

		var errs []error
		if err := c.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop portaudio stream: %w", err))
		}
		if err := c.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close portaudio stream: %w", err))
		}
		if err := portaudio.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("portaudio terminate: %w", err))
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
