package render

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89B4FA"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1"))

	committedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#89B4FA"))

	abortedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))

	modifiedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAB387"))

	focusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F9E2AF"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	visibleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1"))

	invisibleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))

	unknownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9E2AF"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#313244")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F38BA8"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1"))
)
