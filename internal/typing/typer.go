// Package typing emits transcript text into the focused application.
package typing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrUnsupportedRune marks a character the keyboard backend cannot produce.
var ErrUnsupportedRune = errors.New("unsupported character")

// Keyboard produces one key edge for a character.
type Keyboard interface {
	Press(r rune) error
	Release(r rune) error
}

// Injector types a whole transcript and reports how many characters were emitted.
type Injector interface {
	Type(ctx context.Context, text string) (int, error)
}

// Typer emits one press/release pair per rune, in order, with a fixed delay after each.
type Typer struct {
	keyboard Keyboard
	fallback Injector
	delay    time.Duration
	sleep    func(time.Duration)
	logger   *slog.Logger
}

// NewTyper wraps keyboard with the inter-character delay.
func NewTyper(keyboard Keyboard, delay time.Duration, logger *slog.Logger) *Typer {
	return &Typer{keyboard: keyboard, delay: delay, sleep: time.Sleep, logger: logger}
}

// WithFallback routes runes the keyboard cannot produce through f, typically
// a Paster.
func (t *Typer) WithFallback(f Injector) *Typer {
	t.fallback = f
	return t
}

// Type emits text. It runs to completion once started; runes neither the
// keyboard nor the fallback can produce are skipped. The returned count
// excludes skipped runes.
func (t *Typer) Type(ctx context.Context, text string) (int, error) {
	typed := 0
	skipped := 0

	for _, r := range text {
		if err := t.keyboard.Press(r); err != nil {
			if !errors.Is(err, ErrUnsupportedRune) {
				return typed, fmt.Errorf("press %q: %w", r, err)
			}
			if t.fallback == nil {
				skipped++
				continue
			}
			if _, err := t.fallback.Type(ctx, string(r)); err != nil {
				return typed, fmt.Errorf("fallback %q: %w", r, err)
			}
		} else if err := t.keyboard.Release(r); err != nil {
			return typed, fmt.Errorf("release %q: %w", r, err)
		}
		typed++

		if t.delay > 0 {
			t.sleep(t.delay)
		}
	}

	if skipped > 0 && t.logger != nil {
		t.logger.Warn("skipped characters the keyboard backend cannot type", "skipped", skipped, "typed", typed)
	}
	return typed, nil
}
