package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#A78BFA") // violet
	secondaryColor = lipgloss.Color("#10B981") // green
	warningColor   = lipgloss.Color("#F59E0B") // amber
	errorColor     = lipgloss.Color("#F87171") // red
	mutedColor     = lipgloss.Color("#9CA3AF")
	borderColor    = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor)

	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle = lipgloss.NewStyle().Foreground(errorColor)

	helpKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor)
)

// statusStyle colors a member status.
func statusStyle(status string, running bool) lipgloss.Style {
	switch {
	case running:
		return lipgloss.NewStyle().Foreground(secondaryColor)
	case status == "exited":
		return lipgloss.NewStyle().Foreground(warningColor)
	default:
		return mutedStyle
	}
}
