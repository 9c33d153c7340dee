// Package doctor runs readiness diagnostics for config, settings, audio,
// transcription credentials, typing, hotkeys and the status surface.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rbright/whispa/internal/audio"
	"github.com/rbright/whispa/internal/config"
	"github.com/rbright/whispa/internal/hotkey"
	"github.com/rbright/whispa/internal/hypr"
	"github.com/rbright/whispa/internal/ipc"
	"github.com/rbright/whispa/internal/settings"
	"github.com/rbright/whispa/internal/stt"
)

const uinputPath = "/dev/uinput"

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// probes isolates the checks that touch hardware, the network or the desktop.
type probes struct {
	settingsPath  func() (string, error)
	listDevices   func(ctx context.Context, backend string) ([]audio.Device, error)
	checkModel    func(ctx context.Context, cfg config.TranscriptionConfig, key string) error
	hyprVersion   func(ctx context.Context) (string, error)
	readClipboard func() (string, error)
	uinput        string
}

func systemProbes() probes {
	return probes{
		settingsPath: settings.Path,
		listDevices: func(ctx context.Context, name string) ([]audio.Device, error) {
			backend, err := audio.NewBackend(name)
			if err != nil {
				return nil, err
			}
			return backend.ListDevices(ctx)
		},
		checkModel: func(ctx context.Context, cfg config.TranscriptionConfig, key string) error {
			client, err := stt.NewOpenAI(stt.OpenAIConfig{
				APIKey:  key,
				BaseURL: cfg.BaseURL,
				Model:   cfg.Model,
				Timeout: 5 * time.Second,
			})
			if err != nil {
				return err
			}
			return client.CheckModel(ctx)
		},
		hyprVersion:   hypr.Version,
		readClipboard: clipboard.ReadAll,
		uinput:        uinputPath,
	}
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	return run(ctx, cfg, systemProbes())
}

func run(ctx context.Context, loaded config.Loaded, p probes) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	selection, settingsCheck := checkSettings(p)
	checks = append(checks, settingsCheck)
	checks = append(checks, checkRuntimeDir())
	checks = append(checks, checkAudioDevice(ctx, cfg.Audio, selection, p))
	checks = append(checks, checkTranscription(ctx, cfg.Transcription, p)...)
	checks = append(checks, checkTyping(cfg.Typing, p)...)
	checks = append(checks, checkHotkey(cfg.Hotkey)...)
	checks = append(checks, checkIndicator(ctx, cfg.Indicator, p))

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		message = fmt.Sprintf("%s with %d warning(s)", message, n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func checkSettings(p probes) (settings.Settings, Check) {
	path, err := p.settingsPath()
	if err != nil {
		return settings.Default(), Check{Name: "settings", Pass: false, Message: err.Error()}
	}

	s, err := settings.Load(path)
	if err != nil {
		return s, Check{Name: "settings", Pass: false, Message: fmt.Sprintf("%v; defaults will be used", err)}
	}

	device := "default"
	if s.DeviceID >= 0 {
		device = fmt.Sprintf("#%d", s.DeviceID)
	}
	return s, Check{Name: "settings", Pass: true, Message: fmt.Sprintf("device %s, language %s", device, s.LanguageName)}
}

func checkRuntimeDir() Check {
	dir, err := ipc.RuntimeDir()
	if err != nil {
		return Check{Name: "XDG_RUNTIME_DIR", Pass: false, Message: err.Error()}
	}
	return Check{Name: "XDG_RUNTIME_DIR", Pass: true, Message: dir}
}

// checkAudioDevice resolves the persisted device selection against a live enumeration.
func checkAudioDevice(ctx context.Context, cfg config.AudioConfig, selection settings.Settings, p probes) Check {
	listCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	devices, err := p.listDevices(listCtx, cfg.Backend)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	device, err := audio.ResolveDevice(devices, selection.DeviceID)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	return Check{
		Name:    "audio.device",
		Pass:    true,
		Message: fmt.Sprintf("%s device %d: %s", cfg.Backend, device.Index, audio.DescribeDevice(device)),
	}
}

func checkTranscription(ctx context.Context, cfg config.TranscriptionConfig, p probes) []Check {
	key, err := config.ResolveAPIKey(cfg)
	if err != nil {
		return []Check{{Name: "transcription.api_key", Pass: false, Message: err.Error()}}
	}
	checks := []Check{{Name: "transcription.api_key", Pass: true, Message: "found in " + key.Source}}

	endpoint := strings.TrimSpace(cfg.BaseURL)
	if endpoint == "" {
		endpoint = "api.openai.com"
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.checkModel(probeCtx, cfg, key.Value); err != nil {
		var transcriptionErr *stt.TranscriptionError
		message := err.Error()
		if errors.As(err, &transcriptionErr) {
			message = transcriptionErr.Err.Error()
		}
		return append(checks, Check{Name: "transcription.model", Pass: false, Message: fmt.Sprintf("%s at %s: %s", cfg.Model, endpoint, message)})
	}
	return append(checks, Check{Name: "transcription.model", Pass: true, Message: fmt.Sprintf("%s available at %s", cfg.Model, endpoint)})
}

func checkTyping(cfg config.TypingConfig, p probes) []Check {
	var checks []Check

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case config.TypingBackendCommand:
		checks = append(checks, checkCommand(cfg.Command.Argv, "typing.command"))
	default:
		checks = append(checks, checkWritable(p.uinput, "typing.keybd"))
	}

	if strings.EqualFold(cfg.Mode, config.TypingModePaste) {
		if _, err := p.readClipboard(); err != nil {
			checks = append(checks, Check{Name: "typing.clipboard", Pass: false, Message: fmt.Sprintf("clipboard unavailable: %v", err)})
		} else {
			checks = append(checks, Check{Name: "typing.clipboard", Pass: true, Message: "clipboard readable"})
		}
	}
	return checks
}

func checkHotkey(cfg config.HotkeyConfig) []Check {
	if !cfg.Enable {
		return []Check{{Name: "hotkey", Pass: true, Message: "disabled; use `whispa toggle` from a compositor binding"}}
	}

	var checks []Check
	for _, binding := range []struct{ name, raw string }{
		{name: "hotkey.toggle", raw: cfg.Toggle},
		{name: "hotkey.quit", raw: cfg.Quit},
	} {
		parsed, err := hotkey.ParseBinding(binding.raw)
		switch {
		case err != nil:
			checks = append(checks, Check{Name: binding.name, Pass: false, Message: err.Error()})
		case !parsed.Enabled():
			checks = append(checks, Check{Name: binding.name, Pass: true, Message: "unbound"})
		default:
			checks = append(checks, Check{Name: binding.name, Pass: true, Message: fmt.Sprintf("%s (%s mode)", parsed, cfg.Mode)})
		}
	}

	checks = append(checks, checkEnv("DISPLAY", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "X11 display available for global hotkeys", "DISPLAY is empty; global hotkeys need X11 or XWayland"))
	return checks
}

func checkIndicator(ctx context.Context, cfg config.IndicatorConfig, p probes) Check {
	if !cfg.Enable {
		return Check{Name: "indicator", Pass: true, Message: "disabled"}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "desktop":
		return checkBinary("busctl", "desktop notifications over the session bus")
	case "notify":
		return Check{Name: "indicator", Pass: true, Message: "native notifications"}
	default:
		versionCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		tag, err := p.hyprVersion(versionCtx)
		if err != nil {
			return Check{Name: "indicator.hypr", Pass: false, Message: err.Error()}
		}
		return Check{Name: "indicator.hypr", Pass: true, Message: "Hyprland " + tag}
	}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkWritable opens path for writing, which keystroke injection over uinput requires.
func checkWritable(path string, name string) Check {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not writable: %v", path, err)}
	}
	_ = f.Close()
	return Check{Name: name, Pass: true, Message: path + " is writable"}
}
