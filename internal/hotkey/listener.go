package hotkey

import (
	"context"
	"errors"
	"log/slog"

	hook "github.com/robotn/gohook"
)

// Signal is what the listener reports to the controller.
type Signal int

const (
	SignalToggle Signal = iota + 1
	SignalPress
	SignalRelease
	SignalQuit
)

func (s Signal) String() string {
	switch s {
	case SignalToggle:
		return "toggle"
	case SignalPress:
		return "press"
	case SignalRelease:
		return "release"
	case SignalQuit:
		return "quit"
	default:
		return "unknown"
	}
}

const (
	ModeToggle = "toggle"
	ModeHold   = "hold"
)

// matcher tracks held keys and converts raw key edges into signals.
type matcher struct {
	hold    bool
	trigger Binding
	quit    Binding

	held      map[uint16]bool
	modifiers map[modifier]int
	active    bool
}

func newMatcher(mode string, trigger Binding, quit Binding) *matcher {
	return &matcher{
		hold:      mode == ModeHold,
		trigger:   trigger,
		quit:      quit,
		held:      make(map[uint16]bool),
		modifiers: make(map[modifier]int),
	}
}

func (m *matcher) currentModifiers() modifier {
	var mods modifier
	for mod, count := range m.modifiers {
		if count > 0 {
			mods |= mod
		}
	}
	return mods
}

// keyDown ignores auto-repeat: only the first down edge of a held key counts.
func (m *matcher) keyDown(code uint16) []Signal {
	if m.held[code] {
		return nil
	}
	m.held[code] = true
	if mod, ok := modifierKeys[code]; ok {
		m.modifiers[mod]++
		return nil
	}

	mods := m.currentModifiers()
	var out []Signal
	if m.trigger.Enabled() && code == m.trigger.key && mods == m.trigger.modifiers {
		if m.hold {
			m.active = true
			out = append(out, SignalPress)
		} else {
			out = append(out, SignalToggle)
		}
	}
	if m.quit.Enabled() && code == m.quit.key && mods == m.quit.modifiers {
		out = append(out, SignalQuit)
	}
	return out
}

func (m *matcher) keyUp(code uint16) []Signal {
	if !m.held[code] {
		return nil
	}
	delete(m.held, code)

	releasesTrigger := code == m.trigger.key
	if mod, ok := modifierKeys[code]; ok {
		m.modifiers[mod]--
		releasesTrigger = m.trigger.modifiers&mod != 0
	}
	if m.hold && m.active && releasesTrigger {
		m.active = false
		return []Signal{SignalRelease}
	}
	return nil
}

// Listener owns the global gohook session for the daemon lifetime.
type Listener struct {
	matcher *matcher
	emit    func(Signal)
	logger  *slog.Logger
}

// NewListener validates the bindings. emit must not block.
func NewListener(mode string, trigger string, quit string, emit func(Signal), logger *slog.Logger) (*Listener, error) {
	if mode != ModeToggle && mode != ModeHold {
		return nil, errors.New("hotkey mode must be toggle or hold")
	}
	triggerBinding, err := ParseBinding(trigger)
	if err != nil {
		return nil, err
	}
	if !triggerBinding.Enabled() {
		return nil, errors.New("hotkey trigger binding is empty")
	}
	quitBinding, err := ParseBinding(quit)
	if err != nil {
		return nil, err
	}
	return &Listener{
		matcher: newMatcher(mode, triggerBinding, quitBinding),
		emit:    emit,
		logger:  logger,
	}, nil
}

// Run consumes gohook events until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	events := hook.Start()
	defer hook.End()

	if l.logger != nil {
		l.logger.Info("hotkey listener started", "trigger", l.matcher.trigger.String(), "quit", l.matcher.quit.String())
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return errors.New("hotkey event stream closed")
			}
			l.handle(ev)
		}
	}
}

func (l *Listener) handle(ev hook.Event) {
	var signals []Signal
	switch ev.Kind {
	case hook.KeyHold:
		signals = l.matcher.keyDown(ev.Keycode)
	case hook.KeyUp:
		signals = l.matcher.keyUp(ev.Keycode)
	default:
		return
	}
	for _, signal := range signals {
		if l.logger != nil {
			l.logger.Debug("hotkey signal", "signal", signal.String())
		}
		l.emit(signal)
	}
}
