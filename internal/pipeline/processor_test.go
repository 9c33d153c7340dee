package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/rbright/whispa/internal/audio"
	"github.com/rbright/whispa/internal/config"
	"github.com/rbright/whispa/internal/session"
	"github.com/rbright/whispa/internal/stt"
	"github.com/stretchr/testify/require"
)

// sineBuffer fills seconds of audio at 16 kHz whose raw peak is amplitude.
func sineBuffer(t *testing.T, seconds int, amplitude float64) *audio.Buffer {
	t.Helper()
	buf := audio.NewBuffer()
	const rate, block = 16000, 1024
	total := seconds * rate
	for start := 0; start < total; start += block {
		end := start + block
		if end > total {
			end = total
		}
		frame := make(audio.Frame, end-start)
		for i := range frame {
			n := start + i
			frame[i] = float32(amplitude * math.Sin(2*math.Pi*float64(n)/32))
		}
		require.NoError(t, buf.Append(frame))
	}
	return buf
}

type recordingClient struct {
	calls    int
	language string
	artifact stt.Artifact
	samples  int
	duration time.Duration
	existed  bool
	text     string
	err      error
}

func (c *recordingClient) Transcribe(_ context.Context, artifact stt.Artifact, language string) (string, error) {
	c.calls++
	c.language = language
	c.artifact = artifact

	file, err := os.Open(artifact.Path)
	if err == nil {
		c.existed = true
		dec := wav.NewDecoder(file)
		if pcm, derr := dec.FullPCMBuffer(); derr == nil {
			c.samples = len(pcm.Data)
			c.duration = time.Duration(len(pcm.Data)) * time.Second / time.Duration(pcm.Format.SampleRate)
		}
		_ = file.Close()
	}
	return c.text, c.err
}

func newTestProcessor(t *testing.T, client stt.Client) (*Processor, string) {
	t.Helper()
	dir := t.TempDir()
	return NewProcessor(config.Default(), client, dir, nil), dir
}

func TestProcessorTwoSecondBufferReachesClientWithCorrectArtifact(t *testing.T) {
	client := &recordingClient{text: " hello world "}
	processor, dir := newTestProcessor(t, client)

	// raw peak 0.1, gain 5 => post-gain peak 0.5
	prepared, err := processor.Prepare(sineBuffer(t, 2, 0.1))
	require.NoError(t, err)
	require.InDelta(t, 0.5, prepared.Peak, 1e-3)
	require.Equal(t, 2*time.Second, prepared.Duration())

	result, err := processor.Transcribe(context.Background(), prepared, "en")
	require.NoError(t, err)
	require.Equal(t, "hello world", result.Text)

	require.Equal(t, 1, client.calls)
	require.Equal(t, "en", client.language)
	require.True(t, client.existed)
	require.Equal(t, 32000, client.samples)
	require.Equal(t, 2*time.Second, client.duration)
	require.Equal(t, 2*time.Second, client.artifact.Duration())

	require.NoFileExists(t, client.artifact.Path)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestProcessorQuietBufferIsSilenceError(t *testing.T) {
	client := &recordingClient{text: "never"}
	processor, _ := newTestProcessor(t, client)

	// raw peak 0.001, gain 5 => post-gain peak 0.005
	_, err := processor.Prepare(sineBuffer(t, 1, 0.001))
	require.ErrorIs(t, err, session.ErrSilence)

	var silence *session.SilenceError
	require.ErrorAs(t, err, &silence)
	require.InDelta(t, 0.005, silence.Peak, 1e-4)
	require.Equal(t, 0.01, silence.Threshold)
	require.Equal(t, 0, client.calls)
}

func TestProcessorEmptyBufferIsSilenceError(t *testing.T) {
	processor, _ := newTestProcessor(t, &recordingClient{})

	_, err := processor.Prepare(audio.NewBuffer())
	require.ErrorIs(t, err, session.ErrSilence)
	require.Contains(t, err.Error(), "no samples captured")

	_, err = processor.Prepare(nil)
	require.ErrorIs(t, err, session.ErrSilence)
}

func TestProcessorPrepareConsumesBufferOnce(t *testing.T) {
	processor, _ := newTestProcessor(t, &recordingClient{})
	buf := sineBuffer(t, 1, 0.5)

	_, err := processor.Prepare(buf)
	require.NoError(t, err)
	_, err = processor.Prepare(buf)
	require.ErrorIs(t, err, audio.ErrConsumed)
}

func TestProcessorClientFailureRemovesArtifact(t *testing.T) {
	client := &recordingClient{err: errors.New("connection reset")}
	processor, dir := newTestProcessor(t, client)

	prepared, err := processor.Prepare(sineBuffer(t, 1, 0.5))
	require.NoError(t, err)

	_, err = processor.Transcribe(context.Background(), prepared, "")
	require.Error(t, err)
	require.True(t, stt.IsTranscriptionError(err))
	require.True(t, client.existed)
	require.NoFileExists(t, client.artifact.Path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestProcessorEmptyTranscriptNormalizesToEmpty(t *testing.T) {
	processor, _ := newTestProcessor(t, &recordingClient{text: " \n "})

	prepared, err := processor.Prepare(sineBuffer(t, 1, 0.5))
	require.NoError(t, err)

	result, err := processor.Transcribe(context.Background(), prepared, "")
	require.NoError(t, err)
	require.Empty(t, result.Text)
}

func TestProcessorWithoutClientFails(t *testing.T) {
	processor, _ := newTestProcessor(t, nil)
	_, err := processor.Transcribe(context.Background(), session.Prepared{Samples: []float32{0.5}, SampleRate: 16000}, "")
	require.True(t, stt.IsTranscriptionError(err))
}

func TestProcessorDebugAudioDump(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	cfg := config.Default()
	cfg.Debug.EnableAudioDump = true
	processor := NewProcessor(cfg, &recordingClient{text: "ok"}, t.TempDir(), nil)

	prepared, err := processor.Prepare(sineBuffer(t, 1, 0.5))
	require.NoError(t, err)
	_, err = processor.Transcribe(context.Background(), prepared, "")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(state, "whispa", "debug", "audio-*.wav"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	stat, err := os.Stat(matches[0])
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
	require.Greater(t, stat.Size(), int64(44))
}

func TestResolveStateDirUsesXDGStateHome(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("HOME", t.TempDir())

	dir, err := resolveStateDir()
	require.NoError(t, err)
	require.Equal(t, xdgStateHome, dir)
}

func TestResolveStateDirFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", home)

	dir, err := resolveStateDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state"), dir)
}

func TestResolveRuntimeDir(t *testing.T) {
	runtime := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtime)

	dir, err := ResolveRuntimeDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(runtime, "whispa"), dir)
}
