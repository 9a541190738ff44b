package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var statusStyles = map[string]lipgloss.Style{
	"install":  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	"update":   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	"rollback": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	"done":     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	"skipped":  lipgloss.NewStyle().Faint(true),
	"failed":   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
}

// Status renders a state or action word in its conventional color.
// Unknown states pass through unstyled.
func Status(text, state string) string {
	style, ok := statusStyles[state]
	if !ok {
		return text
	}
	return style.Render(text)
}
