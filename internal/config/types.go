// Package config resolves, parses, validates, and defaults whispa configuration.
package config

// Config is the fully materialized runtime configuration used by whispa.
type Config struct {
	Audio         AudioConfig
	Transcription TranscriptionConfig
	Typing        TypingConfig
	Hotkey        HotkeyConfig
	Indicator     IndicatorConfig
	Metrics       MetricsConfig
	Debug         DebugConfig
}

// AudioConfig fixes the capture format and the amplitude policy.
type AudioConfig struct {
	Backend          string
	SampleRate       int
	BlockSize        int
	QueueDepth       int
	Gain             float64
	SilenceThreshold float64
}

// TranscriptionConfig controls the remote speech-to-text call.
type TranscriptionConfig struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKeyEnv string
	EnvFile   string
	Prompt    string
	TimeoutMS int
}

// TypingConfig controls how transcripts reach the focused application.
type TypingConfig struct {
	Mode          string
	Backend       string
	Command       CommandConfig
	DelayMS       int
	TrailingSpace bool
	SingleLine    bool
	PasteShortcut string
}

// HotkeyConfig controls the global key bindings.
type HotkeyConfig struct {
	Enable bool
	Mode   string
	Toggle string
	Quit   string
}

// IndicatorConfig controls notification and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
	ErrorTimeoutMS    int
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Listen string
}

// DebugConfig controls debug artifacts and log verbosity.
type DebugConfig struct {
	EnableAudioDump bool
	Verbose         bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
