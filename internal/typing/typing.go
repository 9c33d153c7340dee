package typing

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/whispa/internal/config"
)

// New builds the injector selected by typing.mode and typing.backend.
func New(cfg config.TypingConfig, logger *slog.Logger) (Injector, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))

	if mode == config.TypingModePaste {
		shortcut, err := ParseShortcut(cfg.PasteShortcut)
		if err != nil {
			return nil, err
		}
		return NewPaster(NewKeybdKeyboard(), shortcut, logger), nil
	}

	delay := time.Duration(cfg.DelayMS) * time.Millisecond
	switch backend {
	case "", config.TypingBackendKeybd:
		kb := NewKeybdKeyboard()
		typer := NewTyper(kb, delay, logger)
		if strings.TrimSpace(cfg.PasteShortcut) == "" {
			return typer, nil
		}
		// Characters outside the US layout are pasted one at a time.
		shortcut, err := ParseShortcut(cfg.PasteShortcut)
		if err != nil {
			return nil, err
		}
		return typer.WithFallback(NewPaster(kb, shortcut, logger)), nil
	case config.TypingBackendCommand:
		kb, err := NewCommandKeyboard(cfg.Command.Argv, 0)
		if err != nil {
			return nil, fmt.Errorf("typing.command: %w", err)
		}
		return NewTyper(kb, delay, logger), nil
	default:
		return nil, fmt.Errorf("unknown typing backend %q", cfg.Backend)
	}
}
