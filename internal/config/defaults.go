package config

const (
	TypingModeType  = "type"
	TypingModePaste = "paste"

	TypingBackendKeybd   = "keybd"
	TypingBackendCommand = "command"

	HotkeyModeToggle = "toggle"
	HotkeyModeHold   = "hold"

	// DefaultHoldBinding is used when hotkey.mode=hold and hotkey.toggle is unset.
	DefaultHoldBinding = "super+f9"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			Backend:          "pulse",
			SampleRate:       16000,
			BlockSize:        1024,
			QueueDepth:       128,
			Gain:             5.0,
			SilenceThreshold: 0.01,
		},
		Transcription: TranscriptionConfig{
			Provider:  "openai",
			Model:     "whisper-1",
			APIKeyEnv: "OPENAI_API_KEY",
			TimeoutMS: 60000,
		},
		Typing: TypingConfig{
			Mode:          TypingModeType,
			Backend:       TypingBackendKeybd,
			DelayMS:       50,
			TrailingSpace: false,
			PasteShortcut: "ctrl+v",
		},
		Hotkey: HotkeyConfig{
			Enable: true,
			Mode:   HotkeyModeToggle,
			Toggle: "insert",
			Quit:   "esc",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "desktop",
			DesktopAppName: "whispa",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Debug: DebugConfig{},
	}
}
