package components

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(k Keyboard, code rune) Keyboard {
	k, _ = k.Update(tea.KeyPressMsg{Code: code})
	return k
}

func TestKeyboard_Navigation(t *testing.T) {
	k := NewKeyboard([][]string{{"1", "2", "3", "4", "5"}, {}, {"❌ Выйти"}})
	require.Len(t, k.Rows, 2)

	k = press(k, tea.KeyRight)
	got, _ := k.Selected()
	assert.Equal(t, "1", got, "unfocused keyboard ignores keys")

	k.Focused = true
	k = press(press(k, tea.KeyRight), tea.KeyRight)
	got, _ = k.Selected()
	assert.Equal(t, "3", got)

	k = press(k, tea.KeyDown)
	got, _ = k.Selected()
	assert.Equal(t, "❌ Выйти", got)

	k = press(press(k, tea.KeyDown), tea.KeyLeft)
	got, _ = k.Selected()
	assert.Equal(t, "❌ Выйти", got)

	k = press(k, tea.KeyUp)
	got, _ = k.Selected()
	assert.Equal(t, "1", got)
}

func TestKeyboard_Empty(t *testing.T) {
	k := NewKeyboard(nil)
	assert.True(t, k.Empty())
	_, ok := k.Selected()
	assert.False(t, ok)
	assert.Equal(t, "", k.View())
}

func TestKeyboard_ViewShowsLabels(t *testing.T) {
	k := NewKeyboard([][]string{{"P", "A"}, {"❌ Выйти"}})
	v := k.View()
	for _, l := range []string{"P", "A", "Выйти"} {
		assert.True(t, strings.Contains(v, l), l)
	}
}

func TestProgress(t *testing.T) {
	assert.Contains(t, Progress{Label: "PAEI", Done: 3, Total: 10, Width: 30}.View(), "3/10")
	assert.Contains(t, Progress{Done: 12, Total: 10, Width: 20}.View(), "10/10")
	assert.Empty(t, Progress{Label: "x", Width: 20}.View())
}
