package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#ff6b4a")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb347"))
	onlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4caf50"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666")).Italic(true)
	meStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff8"))
	otherStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#45f"))
	cursorStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2)
)
