// Package hotkey turns global key events into dictation signals.
package hotkey

import (
	"fmt"
	"strings"

	hook "github.com/robotn/gohook"
)

type modifier uint8

const (
	modCtrl modifier = 1 << iota
	modShift
	modAlt
	modSuper
)

// Binding is a modifier set plus one trigger key, e.g. super+f9.
type Binding struct {
	Raw       string
	modifiers modifier
	key       uint16
}

// uiohook virtual key codes for keys gohook's name table does not carry.
var namedKeys = map[string]uint16{
	"esc":       0x0001,
	"escape":    0x0001,
	"backspace": 0x000E,
	"tab":       0x000F,
	"enter":     0x001C,
	"space":     0x0039,
	"capslock":  0x003A,
	"f1":        0x003B,
	"f2":        0x003C,
	"f3":        0x003D,
	"f4":        0x003E,
	"f5":        0x003F,
	"f6":        0x0040,
	"f7":        0x0041,
	"f8":        0x0042,
	"f9":        0x0043,
	"f10":       0x0044,
	"f11":       0x0057,
	"f12":       0x0058,
	"pause":     0x0E45,
	"home":      0x0E47,
	"pageup":    0x0E49,
	"end":       0x0E4F,
	"pagedown":  0x0E51,
	"insert":    0x0E52,
	"delete":    0x0E53,
}

var modifierKeys = map[uint16]modifier{
	0x001D: modCtrl, 0x0E1D: modCtrl,
	0x002A: modShift, 0x0036: modShift,
	0x0038: modAlt, 0x0E38: modAlt,
	0x0E5B: modSuper, 0x0E5C: modSuper,
}

// ParseBinding parses "ctrl+alt+d" style bindings. An empty string yields the
// zero Binding, which never matches.
func ParseBinding(raw string) (Binding, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Binding{}, nil
	}

	binding := Binding{Raw: raw}
	parts := strings.Split(strings.ToLower(raw), "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Binding{}, fmt.Errorf("invalid hotkey %q: empty key", raw)
		}
		if mod, ok := parseModifier(part); ok && i < len(parts)-1 {
			binding.modifiers |= mod
			continue
		}
		if i != len(parts)-1 {
			return Binding{}, fmt.Errorf("invalid hotkey %q: %q is not a modifier", raw, part)
		}
		code, ok := keyCode(part)
		if !ok {
			return Binding{}, fmt.Errorf("invalid hotkey %q: unknown key %q", raw, part)
		}
		binding.key = code
	}
	return binding, nil
}

// Enabled reports whether the binding names a key.
func (b Binding) Enabled() bool { return b.key != 0 }

func (b Binding) String() string { return b.Raw }

func parseModifier(name string) (modifier, bool) {
	switch name {
	case "ctrl", "control":
		return modCtrl, true
	case "shift":
		return modShift, true
	case "alt":
		return modAlt, true
	case "super", "meta", "cmd", "win":
		return modSuper, true
	default:
		return 0, false
	}
}

func keyCode(name string) (uint16, bool) {
	if code, ok := namedKeys[name]; ok {
		return code, true
	}
	code, ok := hook.Keycode[name]
	return code, ok && code != 0
}
