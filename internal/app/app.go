// Package app dispatches parsed CLI commands: the dictation daemon and the
// one-shot commands that talk to it over IPC.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/rbright/whispa/internal/audio"
	"github.com/rbright/whispa/internal/cli"
	"github.com/rbright/whispa/internal/config"
	"github.com/rbright/whispa/internal/doctor"
	"github.com/rbright/whispa/internal/ipc"
	"github.com/rbright/whispa/internal/logging"
	"github.com/rbright/whispa/internal/session"
	"github.com/rbright/whispa/internal/settings"
	"github.com/rbright/whispa/internal/statusfile"
	"github.com/rbright/whispa/internal/stt"
	"github.com/rbright/whispa/internal/version"
)

const forwardTimeout = 4 * time.Second

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Backend, Client and Injector replace the configured implementations when set.
	Backend  audio.Backend
	Client   stt.Client
	Injector session.Injector
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("whispa"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("whispa"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logOpts := logging.Options{Debug: cfgLoaded.Config.Debug.Verbose}
	if parsed.Command == cli.CommandRun {
		logOpts.Mirror = r.Stderr
	}
	logRuntime, err := logging.New(logOpts)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		if parsed.Command != cli.CommandRun {
			fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		}
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx, cfgLoaded.Config)
	case cli.CommandStatus:
		if parsed.Follow {
			return r.commandFollow(ctx)
		}
		return r.commandStatus(ctx)
	case cli.CommandToggle:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandToggle})
	case cli.CommandStart:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandStart})
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandStop})
	case cli.CommandDevice:
		index, err := strconv.Atoi(parsed.Arg)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: device index %q is not a number\n", parsed.Arg)
			return 2
		}
		return r.commandSelect(ctx, ipc.Request{Command: ipc.CommandDevice, Arg: strconv.Itoa(index)}, func(s settings.Settings) (settings.Settings, error) {
			return s.WithDevice(index)
		}, logger)
	case cli.CommandLanguage:
		return r.commandSelect(ctx, ipc.Request{Command: ipc.CommandLanguage, Arg: parsed.Arg}, func(s settings.Settings) (settings.Settings, error) {
			return s.WithLanguage(parsed.Arg)
		}, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context, cfg config.Config) int {
	backend := r.Backend
	if backend == nil {
		var err error
		backend, err = audio.NewBackend(cfg.Audio.Backend)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
	}

	devices, err := backend.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	fmt.Fprintln(r.Stdout, "index | name | default | available | muted")
	for _, device := range devices {
		fmt.Fprintf(
			r.Stdout,
			"%d | %s | %s | %s | %s\n",
			device.Index,
			audio.DescribeDevice(device),
			yesNo(device.Default),
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}
	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "state: stopped")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if !handled {
		fmt.Fprintln(r.Stdout, "state: stopped")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintf(r.Stdout, "state: %s\n", resp.State)
	if resp.Status != "" {
		fmt.Fprintf(r.Stdout, "status: %s\n", resp.Status)
	}
	if resp.Message != "" {
		fmt.Fprintf(r.Stdout, "selection: %s\n", resp.Message)
	}
	return 0
}

// commandFollow prints every status change until interrupted.
func (r Runner) commandFollow(ctx context.Context) int {
	runtimeDir, err := ipc.RuntimeDir()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	err = statusfile.Follow(ctx, statusfile.Path(runtimeDir), func(snap statusfile.Snapshot) {
		fmt.Fprintf(r.Stdout, "%s\t%s\t%s\n", snap.UpdatedAt.Local().Format("15:04:05"), snap.State, snap.Text)
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: whispa is not running; start it with `whispa run`")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Status != "" {
		fmt.Fprintln(r.Stdout, resp.Status)
	}
	return 0
}

// commandSelect updates the running daemon's selection, or the settings file
// when no daemon is listening.
func (r Runner) commandSelect(ctx context.Context, req ipc.Request, apply func(settings.Settings) (settings.Settings, error), logger *slog.Logger) int {
	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := tryForward(ctx, socketPath, req)
		if handled {
			if err != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", err)
				return 1
			}
			fmt.Fprintln(r.Stdout, resp.Message)
			return 0
		}
	}

	path, err := settings.Path()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	current, err := settings.Load(path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: %v; starting from defaults\n", err)
		logger.Warn("settings unreadable", "path", path, "error", err.Error())
	}

	next, err := apply(current)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if err := settings.Save(path, next); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintf(r.Stdout, "saved %s\n", describeSettings(next))
	return 0
}

func describeSettings(s settings.Settings) string {
	device := "default"
	if s.DeviceID >= 0 {
		device = strconv.Itoa(s.DeviceID)
	}
	language := s.LanguageName
	if s.LanguageCode != "" {
		language = fmt.Sprintf("%s (%s)", s.LanguageName, s.LanguageCode)
	}
	return fmt.Sprintf("device %s, language %s", device, language)
}

// tryForward reports handled=false when no daemon is listening on socketPath.
func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.NotRunning(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
