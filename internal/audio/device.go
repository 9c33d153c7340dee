package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	BackendPulse     = "pulse"
	BackendPortAudio = "portaudio"

	// DefaultDeviceIndex selects the backend's default input device.
	DefaultDeviceIndex = -1
)

// Device describes one input source at a stable index in the backend's enumeration order.
type Device struct {
	Index       int
	ID          string
	Description string
	State       string
	Channels    int
	Available   bool
	Muted       bool
	Default     bool
}

// Params fixes the capture format: mono float32 at SampleRate, BlockSize samples per frame.
type Params struct {
	Device     int
	SampleRate int
	BlockSize  int
	QueueDepth int
}

// Stream is one open capture stream. Frames is closed when the stream ends;
// Err reports a mid-stream device failure, nil after a clean Close.
type Stream interface {
	Device() Device
	Frames() <-chan Frame
	Err() error
	Overflows() int64
	Close() error
}

// Backend enumerates devices and opens capture streams.
type Backend interface {
	Name() string
	ListDevices(context.Context) ([]Device, error)
	Open(context.Context, Params) (Stream, error)
}

// NewBackend resolves a backend by config name.
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendPulse:
		return Pulse{}, nil
	case BackendPortAudio:
		return PortAudio{}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", name)
	}
}

// ResolveDevice picks the device at index, or the default device for a negative index.
func ResolveDevice(devices []Device, index int) (Device, error) {
	if len(devices) == 0 {
		return Device{}, errors.New("no audio input devices found")
	}

	var selected *Device
	if index < 0 {
		for i := range devices {
			if devices[i].Default {
				selected = &devices[i]
				break
			}
		}
		if selected == nil {
			return Device{}, errors.New("default audio input device is unavailable")
		}
	} else {
		for i := range devices {
			if devices[i].Index == index {
				selected = &devices[i]
				break
			}
		}
		if selected == nil {
			return Device{}, fmt.Errorf("audio device index %d did not match any of %d devices", index, len(devices))
		}
	}

	if !selected.Available {
		return Device{}, fmt.Errorf("audio device %d (%s) is not available for input", selected.Index, DescribeDevice(*selected))
	}
	if selected.Muted {
		return Device{}, fmt.Errorf("audio device %d (%s) is muted", selected.Index, DescribeDevice(*selected))
	}
	return *selected, nil
}

// DescribeDevice formats device metadata for logs and status output.
func DescribeDevice(device Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" || id == description {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

func (p Params) withDefaults() Params {
	if p.SampleRate <= 0 {
		p.SampleRate = 16000
	}
	if p.BlockSize <= 0 {
		p.BlockSize = 1024
	}
	if p.QueueDepth <= 0 {
		p.QueueDepth = 128
	}
	return p
}
