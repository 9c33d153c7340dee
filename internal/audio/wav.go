package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

const (
	pcm16Scale    = 32767
	bitsPerSample = 16
	wavFormatPCM  = 1
)

// EncodePCM16 clamps samples to [-1, 1] and scales them to signed 16-bit,
// truncating toward zero.
func EncodePCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int16(s * pcm16Scale)
	}
	return out
}

// DecodePCM16 maps signed 16-bit samples back into float32 on the [-1, 1] scale.
func DecodePCM16(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, v := range pcm {
		out[i] = float32(v) / pcm16Scale
	}
	return out
}

// WriteWAV encodes samples as a mono 16-bit PCM WAV container.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	pcm := EncodePCM16(samples)
	data := make([]int, len(pcm))
	for i, v := range pcm {
		data[i] = int(v)
	}

	enc := wav.NewEncoder(w, sampleRate, bitsPerSample, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitsPerSample,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav header: %w", err)
	}
	return nil
}

// WriteTempWAV writes samples to a uniquely named WAV file under dir and returns its path.
// The caller owns removal of the file.
func WriteTempWAV(dir string, samples []float32, sampleRate int) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	path := filepath.Join(dir, "whispa-"+uuid.NewString()+".wav")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create artifact %q: %w", path, err)
	}

	if err := WriteWAV(file, samples, sampleRate); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close artifact %q: %w", path, err)
	}
	return path, nil
}
