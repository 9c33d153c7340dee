package indicator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/whispa/internal/audio"
	"github.com/rbright/whispa/internal/config"
	"github.com/stretchr/testify/require"
)

func TestCueSamplesPresent(t *testing.T) {
	require.NotEmpty(t, cueSamples(cueStart))
	require.NotEmpty(t, cueSamples(cueStop))
	require.NotEmpty(t, cueSamples(cueComplete))
	require.NotEmpty(t, cueSamples(cueCancel))
	require.Empty(t, cueSamples(cueKind(99)))
}

func TestSynthesizeCueIncludesGaps(t *testing.T) {
	got := synthesizeCue([]toneSpec{
		{frequencyHz: 880, duration: 70 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1175, duration: 70 * time.Millisecond, volume: 0.18},
	})
	want := 2*samplesForDuration(70*time.Millisecond) + samplesForDuration(22*time.Millisecond)
	require.Len(t, got, want)
}

func TestSynthesizeToneDurationAndEnvelope(t *testing.T) {
	got := synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0.2})
	require.Len(t, got, samplesForDuration(100*time.Millisecond))
	require.Zero(t, got[0])
	require.Zero(t, got[len(got)-1])
}

func TestSynthesizeToneInvalidSpecReturnsEmpty(t *testing.T) {
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 0, duration: 100 * time.Millisecond, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 0, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0}))
}

func TestCuePathExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := config.IndicatorConfig{
		SoundStartFile:  "~/cues/start.wav",
		SoundCancelFile: " /abs/cancel.wav ",
	}
	require.Equal(t, filepath.Join(home, "cues", "start.wav"), cuePath(cueStart, cfg))
	require.Equal(t, "/abs/cancel.wav", cuePath(cueCancel, cfg))
	require.Empty(t, cuePath(cueStop, cfg))
	require.Equal(t, home, expandUserPath("~"))
}

func TestLoadCueFileDecodesWAV(t *testing.T) {
	samples := make([]float32, 8000)
	for i := range samples {
		samples[i] = 0.25
	}
	path, err := audio.WriteTempWAV(t.TempDir(), samples, 8000)
	require.NoError(t, err)

	pcm, rate, err := loadCueFile(path)
	require.NoError(t, err)
	require.Equal(t, 8000, rate)
	require.Len(t, pcm, 8000)
	require.InDelta(t, 0.25*32767, float64(pcm[100]), 2)
}

func TestLoadCueFileRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cue.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file at all"), 0o600))

	_, _, err := loadCueFile(path)
	require.Error(t, err)

	_, _, err = loadCueFile(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
}
