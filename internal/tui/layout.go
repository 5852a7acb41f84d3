package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"kkfeed/internal/models"
)

func pageLayout(content string) string {
	return lipgloss.NewStyle().
		Padding(0, 1).
		Render(content)
}

// renderMenu draws the category switcher. Each label carries the item count
// of its store and the key that selects it.
func renderMenu(active models.Category, counts map[models.Category]int, width int) string {
	divider := strings.Repeat("─", max(0, width))

	var styled []string
	for index, cat := range models.Categories() {
		label := string(cat) + " (" + strconv.Itoa(counts[cat]) + ") [" + strconv.Itoa(index+1) + "]"
		style := lipgloss.NewStyle().Foreground(muted())
		if cat == active {
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Underline(true)
		}
		rendered := style.Render(label)
		if index != len(models.Categories())-1 {
			rendered += " | "
		}
		styled = append(styled, rendered)
	}

	menu := lipgloss.JoinHorizontal(lipgloss.Left, styled...)
	return lipgloss.JoinVertical(lipgloss.Left, menu, divider)
}
