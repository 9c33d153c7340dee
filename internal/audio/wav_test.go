package audio

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

func TestPCM16RoundTripWithinOneStep(t *testing.T) {
	input := []float32{0, 0.5, -0.5, 0.999, -0.999, 0.001, -0.001, 1, -1, 0.123456}
	decoded := DecodePCM16(EncodePCM16(input))
	require.Len(t, decoded, len(input))

	step := 1.0 / pcm16Scale
	for i, want := range input {
		got := decoded[i]
		require.LessOrEqual(t, math.Abs(float64(got-want)), step, "sample %d", i)
		if want != 0 {
			require.Equal(t, math.Signbit(float64(want)), math.Signbit(float64(got)), "sample %d sign", i)
		}
	}
}

func TestEncodePCM16ClampsOutOfRange(t *testing.T) {
	pcm := EncodePCM16([]float32{2.5, -3, 1.0001})
	require.Equal(t, []int16{32767, -32767, 32767}, pcm)
}

func TestEncodePCM16TruncatesTowardZero(t *testing.T) {
	// 0.5 * 32767 = 16383.5
	pcm := EncodePCM16([]float32{0.5, -0.5})
	require.Equal(t, []int16{16383, -16383}, pcm)
}

func TestWriteTempWAVDurationAndSampleCount(t *testing.T) {
	dir := t.TempDir()
	samples := make([]float32, 2*16000)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}

	path, err := WriteTempWAV(dir, samples, 16000)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(filepath.Base(path), "whispa-"))
	require.Equal(t, ".wav", filepath.Ext(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	dec := wav.NewDecoder(file)
	require.True(t, dec.IsValidFile())

	pcm, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	second, err := os.Open(path)
	require.NoError(t, err)
	defer second.Close()
	duration, err := wav.NewDecoder(second).Duration()
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, duration)

	require.Equal(t, 16000, pcm.Format.SampleRate)
	require.Equal(t, 1, pcm.Format.NumChannels)
	require.Len(t, pcm.Data, len(samples))
}

func TestWriteTempWAVUsesUniqueNames(t *testing.T) {
	dir := t.TempDir()
	a, err := WriteTempWAV(dir, []float32{0.1}, 16000)
	require.NoError(t, err)
	b, err := WriteTempWAV(dir, []float32{0.1}, 16000)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestWriteWAVRejectsInvalidSampleRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	require.Error(t, WriteWAV(file, []float32{0.1}, 0))
}

func TestApplyGainAndPeak(t *testing.T) {
	input := []float32{0.1, -0.05, 0.02}
	gained := ApplyGain(input, 5)

	require.InDelta(t, 0.5, gained[0], 1e-6)
	require.InDelta(t, -0.25, gained[1], 1e-6)
	require.InDelta(t, 0.1, gained[2], 1e-6)
	require.InDelta(t, 0.1, input[0], 1e-6, "input must not be mutated")

	require.InDelta(t, 0.5, Peak(gained), 1e-6)
	require.Equal(t, 0.0, Peak(nil))
}

func TestApplyGainDoesNotClamp(t *testing.T) {
	gained := ApplyGain([]float32{0.5}, 5)
	require.InDelta(t, 2.5, Peak(gained), 1e-6)
}
