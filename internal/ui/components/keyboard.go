package components

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/profilebot/internal/ui/theme"
)

// Keyboard shows the reply keyboard of the last bot message and lets the
// user pick a button with the arrow keys.
type Keyboard struct {
	Rows [][]string
	row  int
	col  int
	// Focused is false while the user types free text.
	Focused bool
}

// NewKeyboard creates a keyboard with the first button selected.
func NewKeyboard(rows [][]string) Keyboard {
	kept := make([][]string, 0, len(rows))
	for _, r := range rows {
		if len(r) > 0 {
			kept = append(kept, r)
		}
	}
	return Keyboard{Rows: kept}
}

// Empty reports whether there is nothing to pick.
func (k Keyboard) Empty() bool {
	return len(k.Rows) == 0
}

// Update moves the selection.
func (k Keyboard) Update(msg tea.Msg) (Keyboard, tea.Cmd) {
	if k.Empty() || !k.Focused {
		return k, nil
	}
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return k, nil
	}

	switch kmsg.String() {
	case "left":
		if k.col > 0 {
			k.col--
		}
	case "right":
		if k.col < len(k.Rows[k.row])-1 {
			k.col++
		}
	case "up":
		if k.row > 0 {
			k.row--
		}
	case "down":
		if k.row < len(k.Rows)-1 {
			k.row++
		}
	}
	k.col = min(k.col, len(k.Rows[k.row])-1)
	return k, nil
}

// Selected returns the label under the cursor.
func (k Keyboard) Selected() (string, bool) {
	if k.Empty() {
		return "", false
	}
	return k.Rows[k.row][k.col], true
}

// View renders the rows; the selected button is highlighted only while the
// keyboard has focus.
func (k Keyboard) View() string {
	rows := make([]string, 0, len(k.Rows))
	for i, r := range k.Rows {
		buttons := make([]string, 0, len(r))
		for j, label := range r {
			if k.Focused && i == k.row && j == k.col {
				buttons = append(buttons, theme.ButtonActive.Render("▸ "+label))
			} else {
				buttons = append(buttons, theme.ButtonInactive.Render(label))
			}
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Center, buttons...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
