package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch strings.ToLower(cfg.Audio.Backend) {
	case "pulse", "portaudio":
	default:
		return nil, fmt.Errorf("audio.backend must be one of: pulse, portaudio")
	}
	if cfg.Audio.SampleRate < 8000 || cfg.Audio.SampleRate > 48000 {
		return nil, fmt.Errorf("audio.sample_rate must be between 8000 and 48000")
	}
	if cfg.Audio.BlockSize <= 0 {
		return nil, fmt.Errorf("audio.block_size must be > 0")
	}
	if cfg.Audio.QueueDepth <= 0 {
		return nil, fmt.Errorf("audio.queue_depth must be > 0")
	}
	if cfg.Audio.Gain <= 0 {
		return nil, fmt.Errorf("audio.gain must be > 0")
	}
	if cfg.Audio.SilenceThreshold < 0 || cfg.Audio.SilenceThreshold >= 1 {
		return nil, fmt.Errorf("audio.silence_threshold must be in [0, 1)")
	}
	if cfg.Audio.SampleRate != 16000 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("audio.sample_rate=%d; speech models are tuned for 16000", cfg.Audio.SampleRate)})
	}

	if strings.ToLower(cfg.Transcription.Provider) != "openai" {
		return nil, fmt.Errorf("transcription.provider must be: openai")
	}
	if strings.TrimSpace(cfg.Transcription.Model) == "" {
		return nil, fmt.Errorf("transcription.model must not be empty")
	}
	if strings.TrimSpace(cfg.Transcription.APIKeyEnv) == "" {
		return nil, fmt.Errorf("transcription.api_key_env must not be empty")
	}
	if cfg.Transcription.TimeoutMS < 0 {
		return nil, fmt.Errorf("transcription.timeout_ms must be >= 0")
	}
	if base := strings.TrimSpace(cfg.Transcription.BaseURL); base != "" {
		u, err := url.Parse(base)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("transcription.base_url must be an absolute http(s) URL")
		}
	}

	switch strings.ToLower(cfg.Typing.Mode) {
	case TypingModeType, TypingModePaste:
	default:
		return nil, fmt.Errorf("typing.mode must be one of: type, paste")
	}
	switch strings.ToLower(cfg.Typing.Backend) {
	case TypingBackendKeybd:
	case TypingBackendCommand:
		if len(cfg.Typing.Command.Argv) == 0 {
			return nil, fmt.Errorf("typing.command must not be empty when typing.backend=command")
		}
		if strings.EqualFold(cfg.Typing.Mode, TypingModePaste) {
			return nil, fmt.Errorf("typing.mode=paste requires typing.backend=keybd")
		}
	default:
		return nil, fmt.Errorf("typing.backend must be one of: keybd, command")
	}
	if cfg.Typing.DelayMS < 0 {
		return nil, fmt.Errorf("typing.delay_ms must be >= 0")
	}
	if strings.EqualFold(cfg.Typing.Mode, TypingModePaste) && strings.TrimSpace(cfg.Typing.PasteShortcut) == "" {
		return nil, fmt.Errorf("typing.paste_shortcut must not be empty when typing.mode=paste")
	}
	if cfg.Typing.Command.Raw != "" && !strings.EqualFold(cfg.Typing.Backend, TypingBackendCommand) {
		warnings = append(warnings, Warning{Message: "typing.command is ignored unless typing.backend=command"})
	}

	switch strings.ToLower(cfg.Hotkey.Mode) {
	case HotkeyModeToggle, HotkeyModeHold:
	default:
		return nil, fmt.Errorf("hotkey.mode must be one of: toggle, hold")
	}
	if cfg.Hotkey.Enable && strings.TrimSpace(cfg.Hotkey.Toggle) == "" {
		return nil, fmt.Errorf("hotkey.toggle must not be empty when hotkey.enable=true")
	}
	if cfg.Hotkey.Enable && strings.EqualFold(strings.TrimSpace(cfg.Hotkey.Toggle), strings.TrimSpace(cfg.Hotkey.Quit)) {
		return nil, fmt.Errorf("hotkey.toggle and hotkey.quit must differ")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	switch backend {
	case "hypr", "desktop", "notify":
	case "":
		return nil, fmt.Errorf("indicator.backend must not be empty")
	default:
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop, notify")
	}
	if backend != "hypr" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=%s", backend)
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if listen := strings.TrimSpace(cfg.Metrics.Listen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return nil, fmt.Errorf("metrics.listen must be host:port: %w", err)
		}
	}

	return warnings, nil
}
