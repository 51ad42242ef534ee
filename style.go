package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"})

	paragraphStyle = lipgloss.NewStyle().
			Width(78).
			Padding(0, 0, 0, 2)
)

// keyword renders a highlighted term for help text.
func keyword(s string) string {
	return keywordStyle.Render(s)
}

// paragraph wraps and indents help copy.
func paragraph(s string) string {
	return paragraphStyle.Render(s)
}
