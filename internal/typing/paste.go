package typing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

const (
	clipboardSettle = 80 * time.Millisecond
	restoreDelay    = 120 * time.Millisecond
)

// Shortcut is a modifier chord ending in one key, e.g. ctrl+shift+v.
type Shortcut struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Key   rune
}

// ParseShortcut parses "ctrl+v" style chords.
func ParseShortcut(raw string) (Shortcut, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(raw)), "+")
	var s Shortcut
	for i, part := range parts {
		part = strings.TrimSpace(part)
		last := i == len(parts)-1
		switch {
		case part == "ctrl" || part == "control":
			s.Ctrl = true
		case part == "shift":
			s.Shift = true
		case part == "alt":
			s.Alt = true
		case last && len([]rune(part)) == 1:
			s.Key = []rune(part)[0]
		default:
			return Shortcut{}, fmt.Errorf("invalid shortcut %q: unexpected %q", raw, part)
		}
	}
	if s.Key == 0 {
		return Shortcut{}, fmt.Errorf("invalid shortcut %q: missing key", raw)
	}
	return s, nil
}

// Clipboard is the clipboard subset paste mode needs.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(string) error
}

// ShortcutSender presses a chord in the focused window.
type ShortcutSender interface {
	SendShortcut(Shortcut) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error) { return clipboard.ReadAll() }

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Paster places the whole transcript on the clipboard and presses the paste
// shortcut, then restores the previous clipboard contents.
type Paster struct {
	clipboard Clipboard
	sender    ShortcutSender
	shortcut  Shortcut
	sleep     func(time.Duration)
	logger    *slog.Logger
}

// NewPaster uses the system clipboard.
func NewPaster(sender ShortcutSender, shortcut Shortcut, logger *slog.Logger) *Paster {
	return &Paster{
		clipboard: systemClipboard{},
		sender:    sender,
		shortcut:  shortcut,
		sleep:     time.Sleep,
		logger:    logger,
	}
}

func (p *Paster) Type(_ context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	original, readErr := p.clipboard.ReadAll()
	if err := p.clipboard.WriteAll(text); err != nil {
		return 0, fmt.Errorf("set clipboard: %w", err)
	}
	p.sleep(clipboardSettle)

	if err := p.sender.SendShortcut(p.shortcut); err != nil {
		// The transcript stays on the clipboard for a manual paste.
		return 0, fmt.Errorf("send paste shortcut: %w", err)
	}

	if readErr == nil {
		p.sleep(restoreDelay)
		if err := p.clipboard.WriteAll(original); err != nil && p.logger != nil {
			p.logger.Warn("unable to restore clipboard", "error", err.Error())
		}
	}
	return len([]rune(text)), nil
}
