package cli

import "github.com/charmbracelet/lipgloss"

var (
	// headerStyle styles the column header row of listings.
	headerStyle = lipgloss.NewStyle().Bold(true)

	// dimStyle styles secondary detail such as paths.
	dimStyle = lipgloss.NewStyle().Faint(true)
)
