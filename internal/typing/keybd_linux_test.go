//go:build linux

package typing

import (
	"testing"

	"github.com/micmonay/keybd_event"
	"github.com/stretchr/testify/require"
)

func TestLookupKey(t *testing.T) {
	t.Parallel()

	stroke, ok := lookupKey('a')
	require.True(t, ok)
	require.Equal(t, keyStroke{code: keybd_event.VK_A}, stroke)

	stroke, ok = lookupKey('A')
	require.True(t, ok)
	require.Equal(t, keyStroke{code: keybd_event.VK_A, shift: true}, stroke)

	stroke, ok = lookupKey('?')
	require.True(t, ok)
	require.Equal(t, keyStroke{code: keybd_event.VK_SLASH, shift: true}, stroke)

	_, ok = lookupKey('ß')
	require.False(t, ok)
}

func TestKeybdKeyboardRejectsUnsupportedRuneBeforeInit(t *testing.T) {
	kb := NewKeybdKeyboard()
	err := kb.Press('λ')
	require.ErrorIs(t, err, ErrUnsupportedRune)
	require.NoError(t, kb.Release('λ'))
}
