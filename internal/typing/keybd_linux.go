//go:build linux

package typing

import (
	"fmt"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

// uinput needs a moment before the new virtual device accepts events.
const uinputSettle = 2 * time.Second

type keyStroke struct {
	code  int
	shift bool
}

// KeybdKeyboard injects keys through a uinput virtual keyboard.
type KeybdKeyboard struct {
	once    sync.Once
	initErr error
	kb      keybd_event.KeyBonding
}

// NewKeybdKeyboard returns a keyboard that creates its uinput device on first use.
func NewKeybdKeyboard() *KeybdKeyboard {
	return &KeybdKeyboard{}
}

func (k *KeybdKeyboard) init() error {
	k.once.Do(func() {
		kb, err := keybd_event.NewKeyBonding()
		if err != nil {
			k.initErr = fmt.Errorf("create uinput keyboard (is /dev/uinput writable?): %w", err)
			return
		}
		time.Sleep(uinputSettle)
		k.kb = kb
	})
	return k.initErr
}

func (k *KeybdKeyboard) Press(r rune) error {
	stroke, ok := lookupKey(r)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedRune, r)
	}
	if err := k.init(); err != nil {
		return err
	}
	k.kb.Clear()
	k.kb.HasSHIFT(stroke.shift)
	k.kb.SetKeys(stroke.code)
	return k.kb.Press()
}

func (k *KeybdKeyboard) Release(r rune) error {
	if _, ok := lookupKey(r); !ok {
		return nil
	}
	if err := k.init(); err != nil {
		return err
	}
	return k.kb.Release()
}

// SendShortcut presses and releases a modifier chord such as ctrl+v.
func (k *KeybdKeyboard) SendShortcut(s Shortcut) error {
	stroke, ok := lookupKey(s.Key)
	if !ok {
		return fmt.Errorf("%w: shortcut key %q", ErrUnsupportedRune, s.Key)
	}
	if err := k.init(); err != nil {
		return err
	}
	k.kb.Clear()
	k.kb.HasCTRL(s.Ctrl)
	k.kb.HasALT(s.Alt)
	k.kb.HasSHIFT(s.Shift || stroke.shift)
	k.kb.SetKeys(stroke.code)
	return k.kb.Launching()
}

func lookupKey(r rune) (keyStroke, bool) {
	if r >= 'A' && r <= 'Z' {
		stroke, ok := usLayout[r-'A'+'a']
		stroke.shift = true
		return stroke, ok
	}
	stroke, ok := usLayout[r]
	return stroke, ok
}

// usLayout maps printable ASCII to evdev key codes on a US keyboard.
var usLayout = map[rune]keyStroke{
	'a': {code: keybd_event.VK_A}, 'b': {code: keybd_event.VK_B}, 'c': {code: keybd_event.VK_C},
	'd': {code: keybd_event.VK_D}, 'e': {code: keybd_event.VK_E}, 'f': {code: keybd_event.VK_F},
	'g': {code: keybd_event.VK_G}, 'h': {code: keybd_event.VK_H}, 'i': {code: keybd_event.VK_I},
	'j': {code: keybd_event.VK_J}, 'k': {code: keybd_event.VK_K}, 'l': {code: keybd_event.VK_L},
	'm': {code: keybd_event.VK_M}, 'n': {code: keybd_event.VK_N}, 'o': {code: keybd_event.VK_O},
	'p': {code: keybd_event.VK_P}, 'q': {code: keybd_event.VK_Q}, 'r': {code: keybd_event.VK_R},
	's': {code: keybd_event.VK_S}, 't': {code: keybd_event.VK_T}, 'u': {code: keybd_event.VK_U},
	'v': {code: keybd_event.VK_V}, 'w': {code: keybd_event.VK_W}, 'x': {code: keybd_event.VK_X},
	'y': {code: keybd_event.VK_Y}, 'z': {code: keybd_event.VK_Z},

	'1': {code: keybd_event.VK_1}, '2': {code: keybd_event.VK_2}, '3': {code: keybd_event.VK_3},
	'4': {code: keybd_event.VK_4}, '5': {code: keybd_event.VK_5}, '6': {code: keybd_event.VK_6},
	'7': {code: keybd_event.VK_7}, '8': {code: keybd_event.VK_8}, '9': {code: keybd_event.VK_9},
	'0': {code: keybd_event.VK_0},

	'!': {code: keybd_event.VK_1, shift: true}, '@': {code: keybd_event.VK_2, shift: true},
	'#': {code: keybd_event.VK_3, shift: true}, '$': {code: keybd_event.VK_4, shift: true},
	'%': {code: keybd_event.VK_5, shift: true}, '^': {code: keybd_event.VK_6, shift: true},
	'&': {code: keybd_event.VK_7, shift: true}, '*': {code: keybd_event.VK_8, shift: true},
	'(': {code: keybd_event.VK_9, shift: true}, ')': {code: keybd_event.VK_0, shift: true},

	' ':  {code: keybd_event.VK_SPACE},
	'\n': {code: keybd_event.VK_ENTER},
	'\t': {code: keybd_event.VK_TAB},

	'-': {code: keybd_event.VK_MINUS}, '_': {code: keybd_event.VK_MINUS, shift: true},
	'=': {code: keybd_event.VK_EQUAL}, '+': {code: keybd_event.VK_EQUAL, shift: true},
	'[': {code: keybd_event.VK_LEFTBRACE}, '{': {code: keybd_event.VK_LEFTBRACE, shift: true},
	']': {code: keybd_event.VK_RIGHTBRACE}, '}': {code: keybd_event.VK_RIGHTBRACE, shift: true},
	';': {code: keybd_event.VK_SEMICOLON}, ':': {code: keybd_event.VK_SEMICOLON, shift: true},
	'\'': {code: keybd_event.VK_APOSTROPHE}, '"': {code: keybd_event.VK_APOSTROPHE, shift: true},
	'`': {code: keybd_event.VK_GRAVE}, '~': {code: keybd_event.VK_GRAVE, shift: true},
	'\\': {code: keybd_event.VK_BACKSLASH}, '|': {code: keybd_event.VK_BACKSLASH, shift: true},
	',': {code: keybd_event.VK_COMMA}, '<': {code: keybd_event.VK_COMMA, shift: true},
	'.': {code: keybd_event.VK_DOT}, '>': {code: keybd_event.VK_DOT, shift: true},
	'/': {code: keybd_event.VK_SLASH}, '?': {code: keybd_event.VK_SLASH, shift: true},
}
