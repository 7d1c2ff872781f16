package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/profilebot/internal/ui/theme"
)

// Progress is the answered/total bar of the running instrument.
type Progress struct {
	Label string
	Done  int
	Total int
	Width int
}

// View renders "Label ████░░░░ 3/10". An empty Total renders nothing.
func (p Progress) View() string {
	if p.Total <= 0 {
		return ""
	}
	done := min(max(p.Done, 0), p.Total)
	count := fmt.Sprintf(" %d/%d", done, p.Total)

	head := ""
	if p.Label != "" {
		head = lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + " "
	}
	bar := max(p.Width-lipgloss.Width(head)-len(count), 4)
	filled := bar * done / p.Total

	return head +
		theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", bar-filled)) +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(count)
}
