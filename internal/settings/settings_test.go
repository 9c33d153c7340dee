package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	require.Equal(t, Default(), s)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	s, err := Default().WithDevice(3)
	require.NoError(t, err)
	s, err = s.WithLanguage("fr")
	require.NoError(t, err)

	require.NoError(t, Save(path, s))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Settings{DeviceID: 3, LanguageName: "French", LanguageCode: "fr"}, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must not linger")
}

func TestLoadMalformedFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"device_id": "three"`), 0o600))

	s, err := Load(path)
	require.Equal(t, Default(), s)

	var settingsErr *Error
	require.ErrorAs(t, err, &settingsErr)
	require.Equal(t, path, settingsErr.Path)
}

func TestLoadRejectsUnknownLanguageCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"device_id": 1, "language_name": "?", "language_code": "zz-bogus"}`), 0o600))

	s, err := Load(path)
	require.Error(t, err)
	require.Equal(t, Default(), s)
}

func TestLoadFillsMissingLanguageName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"device_id": 0, "language_code": "de"}`), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Settings{DeviceID: 0, LanguageName: "German", LanguageCode: "de"}, s)
}

func TestWithDeviceRejectsBelowDefault(t *testing.T) {
	_, err := Default().WithDevice(-2)
	require.Error(t, err)
}

func TestResolveLanguage(t *testing.T) {
	t.Parallel()

	lang, err := ResolveLanguage("auto")
	require.NoError(t, err)
	require.True(t, lang.Auto())
	require.Equal(t, AutoLanguageName, lang.Name)

	lang, err = ResolveLanguage("pt-BR")
	require.NoError(t, err)
	require.Equal(t, "pt", lang.Code)
	require.Equal(t, "Portuguese", lang.Name)

	lang, err = ResolveLanguage("deu")
	require.NoError(t, err)
	require.Equal(t, "de", lang.Code)

	_, err = ResolveLanguage("not a language")
	require.Error(t, err)
}

func TestPathUsesConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := Path()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "whispa", "settings.json"), path)
}
