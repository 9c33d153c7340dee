// Package cli parses the whispa command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun      Command = "run"
	CommandToggle   Command = "toggle"
	CommandStart    Command = "start"
	CommandStop     Command = "stop"
	CommandStatus   Command = "status"
	CommandDevice   Command = "device"
	CommandLanguage Command = "language"
	CommandDevices  Command = "devices"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

// commandArgs is the number of positional arguments each command takes.
var commandArgs = map[Command]int{
	CommandRun:      0,
	CommandToggle:   0,
	CommandStart:    0,
	CommandStop:     0,
	CommandStatus:   0,
	CommandDevice:   1,
	CommandLanguage: 1,
	CommandDevices:  0,
	CommandDoctor:   0,
	CommandVersion:  0,
	CommandHelp:     0,
}

type Parsed struct {
	Command    Command
	Arg        string
	ConfigPath string
	Follow     bool
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	var positional []string
	commandSeen := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
			return parsed, nil
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			if commandSeen {
				return Parsed{}, fmt.Errorf("--config must precede the command")
			}
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "-f", "--follow":
			if parsed.Command != CommandStatus || !commandSeen {
				return Parsed{}, fmt.Errorf("%s is only valid after the status command", arg)
			}
			parsed.Follow = true
		default:
			if strings.HasPrefix(arg, "-") && !(commandSeen && arg == "-1") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			if commandSeen {
				positional = append(positional, arg)
				continue
			}

			cmd := Command(arg)
			if _, ok := commandArgs[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			commandSeen = true
		}
	}

	want := commandArgs[parsed.Command]
	switch {
	case len(positional) > want:
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
	case len(positional) < want:
		return Parsed{}, fmt.Errorf("command %q requires an argument", parsed.Command)
	case want == 1:
		parsed.Arg = strings.TrimSpace(positional[0])
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [args]

Commands:
  run                   Run the dictation daemon (hotkeys, IPC, status)
  toggle                Start recording, or stop and type the transcript
  start                 Start recording
  stop                  Stop recording and type the transcript
  status [--follow]     Print the current status; --follow streams updates
  device <index>        Select the input device (-1 for the default)
  language <code|auto>  Select the transcription language hint
  devices               List available input devices
  doctor                Run configuration and environment checks
  version               Print version information
  help                  Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/whispa/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
