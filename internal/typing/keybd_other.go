//go:build !linux

package typing

import "errors"

var errKeybdUnsupported = errors.New("keybd typing backend is only supported on linux; use typing.backend=command")

// KeybdKeyboard is unavailable off linux.
type KeybdKeyboard struct{}

func NewKeybdKeyboard() *KeybdKeyboard { return &KeybdKeyboard{} }

func (*KeybdKeyboard) Press(rune) error { return errKeybdUnsupported }

func (*KeybdKeyboard) Release(rune) error { return errKeybdUnsupported }

func (*KeybdKeyboard) SendShortcut(Shortcut) error { return errKeybdUnsupported }
