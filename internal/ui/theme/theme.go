// Package theme holds the console colours and shared styles.
package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette: muted office tones that read well on dark terminals.
var (
	Primary   = lipgloss.Color("#3B82F6") // Blue
	Secondary = lipgloss.Color("#0EA5E9") // Sky
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#22C55E") // Green
	Text      = lipgloss.Color("#F1F5F9") // Off-white
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgCard    = lipgloss.Color("#1E293B") // Dark slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Hint is footer and placeholder text.
var Hint = lipgloss.NewStyle().
	Foreground(TextDim).
	Italic(true)

// Chat transcript
var (
	BotName = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	UserName = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	// Notice marks replies delivered after the fact, such as reports.
	Notice = lipgloss.NewStyle().
		Foreground(Success)
)

// Components
var (
	ProgressFilled = lipgloss.NewStyle().
			Background(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Background(Border)

	ButtonActive = lipgloss.NewStyle().
			Background(Primary).
			Foreground(Text).
			Bold(true).
			Padding(0, 1)

	ButtonInactive = lipgloss.NewStyle().
			Foreground(Text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1)
)
