package typing

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const commandPlaceholder = "{}"

// CommandKeyboard runs an external tool (wtype, xdotool, ydotool) per character.
// The tool emits both key edges, so Release is a no-op.
type CommandKeyboard struct {
	argv    []string
	timeout time.Duration
}

// NewCommandKeyboard validates argv. "{}" is replaced by the character; without
// a placeholder the character is appended as the last argument.
func NewCommandKeyboard(argv []string, timeout time.Duration) (*CommandKeyboard, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("command argv cannot be empty")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &CommandKeyboard{argv: append([]string(nil), argv...), timeout: timeout}, nil
}

func (c *CommandKeyboard) Press(r rune) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return runCommand(ctx, c.expand(r))
}

func (c *CommandKeyboard) Release(rune) error { return nil }

func (c *CommandKeyboard) expand(r rune) []string {
	char := string(r)
	out := make([]string, 0, len(c.argv)+1)
	replaced := false
	for _, arg := range c.argv {
		if strings.Contains(arg, commandPlaceholder) {
			arg = strings.ReplaceAll(arg, commandPlaceholder, char)
			replaced = true
		}
		out = append(out, arg)
	}
	if !replaced {
		out = append(out, char)
	}
	return out
}

// runCommand executes argv and folds the tool's output into any failure.
func runCommand(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	output, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("run %s: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("run %s: %w", argv[0], err)
	}
	return nil
}
