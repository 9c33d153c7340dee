package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Audio         *jsoncAudio         `json:"audio"`
	Transcription *jsoncTranscription `json:"transcription"`
	Typing        *jsoncTyping        `json:"typing"`
	Hotkey        *jsoncHotkey        `json:"hotkey"`
	Indicator     *jsoncIndicator     `json:"indicator"`
	Metrics       *jsoncMetrics       `json:"metrics"`
	Debug         *jsoncDebug         `json:"debug"`
}

type jsoncAudio struct {
	Backend          *string  `json:"backend"`
	SampleRate       *int     `json:"sample_rate"`
	BlockSize        *int     `json:"block_size"`
	QueueDepth       *int     `json:"queue_depth"`
	Gain             *float64 `json:"gain"`
	SilenceThreshold *float64 `json:"silence_threshold"`
}

type jsoncTranscription struct {
	Provider  *string `json:"provider"`
	Model     *string `json:"model"`
	BaseURL   *string `json:"base_url"`
	APIKeyEnv *string `json:"api_key_env"`
	EnvFile   *string `json:"env_file"`
	Prompt    *string `json:"prompt"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncTyping struct {
	Mode          *string `json:"mode"`
	Backend       *string `json:"backend"`
	Command       *string `json:"command"`
	DelayMS       *int    `json:"delay_ms"`
	TrailingSpace *bool   `json:"trailing_space"`
	SingleLine    *bool   `json:"single_line"`
	PasteShortcut *string `json:"paste_shortcut"`
}

type jsoncHotkey struct {
	Enable *bool   `json:"enable"`
	Mode   *string `json:"mode"`
	Toggle *string `json:"toggle"`
	Quit   *string `json:"quit"`
}

type jsoncIndicator struct {
	Enable            *bool   `json:"enable"`
	Backend           *string `json:"backend"`
	DesktopAppName    *string `json:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file"`
	SoundCancelFile   *string `json:"sound_cancel_file"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms"`
}

type jsoncMetrics struct {
	Listen *string `json:"listen"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
	Verbose   *bool `json:"verbose"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Backend, a.Backend)
		setInt(&cfg.Audio.SampleRate, a.SampleRate)
		setInt(&cfg.Audio.BlockSize, a.BlockSize)
		setInt(&cfg.Audio.QueueDepth, a.QueueDepth)
		setFloat(&cfg.Audio.Gain, a.Gain)
		setFloat(&cfg.Audio.SilenceThreshold, a.SilenceThreshold)
	}

	if tr := payload.Transcription; tr != nil {
		setString(&cfg.Transcription.Provider, tr.Provider)
		setString(&cfg.Transcription.Model, tr.Model)
		setString(&cfg.Transcription.BaseURL, tr.BaseURL)
		setString(&cfg.Transcription.APIKeyEnv, tr.APIKeyEnv)
		setString(&cfg.Transcription.EnvFile, tr.EnvFile)
		setString(&cfg.Transcription.Prompt, tr.Prompt)
		setInt(&cfg.Transcription.TimeoutMS, tr.TimeoutMS)
	}

	if ty := payload.Typing; ty != nil {
		setString(&cfg.Typing.Mode, ty.Mode)
		setString(&cfg.Typing.Backend, ty.Backend)
		setInt(&cfg.Typing.DelayMS, ty.DelayMS)
		setBool(&cfg.Typing.TrailingSpace, ty.TrailingSpace)
		setBool(&cfg.Typing.SingleLine, ty.SingleLine)
		setString(&cfg.Typing.PasteShortcut, ty.PasteShortcut)
		if ty.Command != nil {
			cmd, err := parseTypingCommand(*ty.Command)
			if err != nil {
				return nil, err
			}
			cfg.Typing.Command = cmd
		}
	}

	if h := payload.Hotkey; h != nil {
		setBool(&cfg.Hotkey.Enable, h.Enable)
		setString(&cfg.Hotkey.Mode, h.Mode)
		setString(&cfg.Hotkey.Quit, h.Quit)
		if h.Toggle != nil {
			setString(&cfg.Hotkey.Toggle, h.Toggle)
		} else if h.Mode != nil && strings.EqualFold(strings.TrimSpace(*h.Mode), HotkeyModeHold) {
			cfg.Hotkey.Toggle = DefaultHoldBinding
		}
	}

	if ind := payload.Indicator; ind != nil {
		setBool(&cfg.Indicator.Enable, ind.Enable)
		setString(&cfg.Indicator.Backend, ind.Backend)
		setString(&cfg.Indicator.DesktopAppName, ind.DesktopAppName)
		setBool(&cfg.Indicator.SoundEnable, ind.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, ind.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, ind.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, ind.SoundCompleteFile)
		setString(&cfg.Indicator.SoundCancelFile, ind.SoundCancelFile)
		setInt(&cfg.Indicator.ErrorTimeoutMS, ind.ErrorTimeoutMS)
	}

	if payload.Metrics != nil {
		setString(&cfg.Metrics.Listen, payload.Metrics.Listen)
	}

	if payload.Debug != nil {
		setBool(&cfg.Debug.EnableAudioDump, payload.Debug.AudioDump)
		setBool(&cfg.Debug.Verbose, payload.Debug.Verbose)
	}

	return warnings, nil
}

// normalizeJSONC blanks comments and drops trailing commas while keeping byte
// offsets stable, so decode errors still point at the original line/column.
func normalizeJSONC(content string) (string, error) {
	out := []byte(content)

	inString := false
	escape := false
	lastComma := -1

	for i := 0; i < len(out); i++ {
		ch := out[i]

		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch {
		case ch == '"':
			inString = true
			lastComma = -1
		case ch == '/' && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' && out[i] != '\r' {
				out[i] = ' '
				i++
			}
		case ch == '/' && i+1 < len(out) && out[i+1] == '*':
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				return "", fmt.Errorf("unterminated block comment in JSONC")
			}
			stop := i + 2 + end + 2
			for ; i < stop; i++ {
				if out[i] != '\n' && out[i] != '\r' && out[i] != '\t' {
					out[i] = ' '
				}
			}
			i--
		case ch == ',':
			lastComma = i
		case ch == '}' || ch == ']':
			if lastComma >= 0 {
				out[lastComma] = ' '
			}
			lastComma = -1
		case isJSONWhitespace(ch):
		default:
			lastComma = -1
		}
	}

	return string(out), nil
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
