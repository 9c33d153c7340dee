package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/whispa.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/whispa.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    string
		wantCmd    Command
		wantArg    string
		wantHelp   bool
		wantFollow bool
		wantPath   string
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help after command", args: []string{"toggle", "--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "run", args: []string{"run"}, wantCmd: CommandRun},
		{name: "start", args: []string{"start"}, wantCmd: CommandStart},
		{name: "status follow", args: []string{"status", "--follow"}, wantCmd: CommandStatus, wantFollow: true},
		{name: "status short follow", args: []string{"status", "-f"}, wantCmd: CommandStatus, wantFollow: true},
		{name: "device index", args: []string{"device", "2"}, wantCmd: CommandDevice, wantArg: "2"},
		{name: "device default", args: []string{"device", "-1"}, wantCmd: CommandDevice, wantArg: "-1"},
		{name: "language code", args: []string{"language", "pt-BR"}, wantCmd: CommandLanguage, wantArg: "pt-BR"},
		{
			name:     "language with config",
			args:     []string{"--config", "/tmp/cfg", "language", "auto"},
			wantCmd:  CommandLanguage,
			wantArg:  "auto",
			wantPath: "/tmp/cfg",
		},
		{name: "config after command", args: []string{"status", "--config", "/tmp/cfg"}, wantErr: "must precede the command"},
		{name: "missing config path", args: []string{"--config"}, wantErr: "requires a path"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"cancel"}, wantErr: "unknown command"},
		{name: "extra args after command", args: []string{"doctor", "extra"}, wantErr: "unexpected arguments"},
		{name: "device without index", args: []string{"device"}, wantErr: "requires an argument"},
		{name: "language extra", args: []string{"language", "en", "fr"}, wantErr: "unexpected arguments"},
		{name: "follow without status", args: []string{"toggle", "--follow"}, wantErr: "only valid after the status command"},
		{name: "follow before command", args: []string{"--follow", "status"}, wantErr: "only valid after the status command"},
		{name: "negative index before command", args: []string{"-1"}, wantErr: "unknown flag"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantArg, parsed.Arg)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantFollow, parsed.Follow)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
		})
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("whispa")
	for _, want := range []string{"run", "toggle", "status [--follow]", "device <index>", "language <code|auto>", "doctor", "--config PATH", "config.jsonc"} {
		require.Contains(t, text, want)
	}
}
