// Package layout draws the chrome around the console chat.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/profilebot/internal/ui/theme"
)

// Smallest terminal the chat is drawn in.
const (
	MinWidth  = 60
	MinHeight = 20
)

type KeyHint struct {
	Key         string
	Description string
}

// Frame is a title bar over the chat body and a key hint bar under it.
type Frame struct {
	// Respondent is the name the user gave, empty before the intro.
	Respondent string
	// Status is right-aligned in the title bar, e.g. "DISC 3/8".
	Status string
	Hints  []KeyHint
}

var bar = lipgloss.NewStyle().
	Background(theme.BgCard).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(theme.Border)

func (f Frame) title(width int) string {
	left := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("  Profilebot")
	if f.Respondent != "" {
		left += lipgloss.NewStyle().Foreground(theme.Text).Render("  " + f.Respondent)
	}
	right := lipgloss.NewStyle().Foreground(theme.Accent).Render(f.Status)
	gap := max(width-4-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return bar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func (f Frame) hints(width int) string {
	key := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	parts := make([]string, len(f.Hints))
	for i, h := range f.Hints {
		parts[i] = key.Render(h.Key) + " " + theme.Hint.Render(h.Description)
	}
	return bar.Width(width).Render("  " + strings.Join(parts, "   "))
}

// BodyHeight is the number of lines left for the body.
func (f Frame) BodyHeight(width, height int) int {
	return max(height-lipgloss.Height(f.title(width))-lipgloss.Height(f.hints(width)), 0)
}

// Render draws the frame around body. Below MinWidth x MinHeight it draws a
// notice instead.
func (f Frame) Render(body string, width, height int) string {
	if width < MinWidth || height < MinHeight {
		return lipgloss.NewStyle().
			Align(lipgloss.Center).
			Foreground(theme.Text).
			Width(width).
			Height(height).
			Render(fmt.Sprintf("Окно терминала слишком маленькое.\n\nНужно не меньше %d x %d,\nсейчас %d x %d.",
				MinWidth, MinHeight, width, height))
	}
	bodyHeight := f.BodyHeight(width, height)
	return f.title(width) + "\n" +
		lipgloss.NewStyle().Width(width).Height(bodyHeight).Render(body) + "\n" +
		f.hints(width)
}
