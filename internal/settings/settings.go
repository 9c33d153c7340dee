// Package settings persists the user's device and language selection.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rbright/whispa/internal/config"
)

const (
	// DefaultDeviceID selects the audio backend's default input.
	DefaultDeviceID = -1
	// AutoLanguageName is shown when the service detects the language.
	AutoLanguageName = "Auto-detect"
)

// Settings is the flat record written on every successful recording start.
type Settings struct {
	DeviceID     int    `json:"device_id"`
	LanguageName string `json:"language_name"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Error reports an unreadable or malformed settings file. Callers fall back to
// Default and surface the message as a warning.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("settings %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Default selects the default device and automatic language detection.
func Default() Settings {
	return Settings{DeviceID: DefaultDeviceID, LanguageName: AutoLanguageName}
}

// Path returns settings.json inside the whispa config directory.
func Path() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

// Load reads path. A missing file yields Default with no error; anything
// unreadable yields Default plus a *Error.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), &Error{Path: path, Err: err}
	}

	s := Default()
	if err := json.Unmarshal(data, &s); err != nil {
		return Default(), &Error{Path: path, Err: err}
	}
	if err := s.normalize(); err != nil {
		return Default(), &Error{Path: path, Err: err}
	}
	return s, nil
}

func (s *Settings) normalize() error {
	if s.DeviceID < DefaultDeviceID {
		return fmt.Errorf("device_id %d is invalid", s.DeviceID)
	}
	if strings.TrimSpace(s.LanguageCode) == "" {
		s.LanguageCode = ""
		s.LanguageName = AutoLanguageName
		return nil
	}
	lang, err := ResolveLanguage(s.LanguageCode)
	if err != nil {
		return err
	}
	s.LanguageCode = lang.Code
	if strings.TrimSpace(s.LanguageName) == "" {
		s.LanguageName = lang.Name
	}
	return nil
}

// Save writes s atomically: temp file, fsync, rename.
func Save(path string, s Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "settings-*.tmp")
	if err != nil {
		return fmt.Errorf("create settings temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync settings: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close settings temp: %w", err)
	}
	success = true

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename settings: %w", err)
	}
	return nil
}

// WithDevice returns a copy selecting the device at index (-1 for default).
func (s Settings) WithDevice(index int) (Settings, error) {
	if index < DefaultDeviceID {
		return s, fmt.Errorf("device index must be >= %d", DefaultDeviceID)
	}
	s.DeviceID = index
	return s, nil
}

// WithLanguage returns a copy selecting a language code, or auto-detect for
// "auto" and "".
func (s Settings) WithLanguage(input string) (Settings, error) {
	lang, err := ResolveLanguage(input)
	if err != nil {
		return s, err
	}
	s.LanguageCode = lang.Code
	s.LanguageName = lang.Name
	return s, nil
}
