package tui

import (
	"github.com/charmbracelet/lipgloss"
)

func accent() lipgloss.Color {
	return lipgloss.Color("#E9A23B")
}

func accentDark() lipgloss.Color {
	return lipgloss.Color("#B5651D")
}

func muted() lipgloss.Color {
	return lipgloss.Color("8")
}
