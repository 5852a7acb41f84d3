package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"kkfeed/internal/models"
)

type detailPage struct {
	width    int
	height   int
	viewport viewport.Model
	selected *models.Item
	cat      models.Category
}

func (m detailPage) Init() tea.Cmd {
	return nil
}

func (m detailPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, func() tea.Msg { return goToTableMsg{} }
		case "k":
			m.viewport.ScrollUp(1)
			return m, nil
		case "j":
			m.viewport.ScrollDown(1)
			return m, nil
		case "g":
			m.viewport.GotoTop()
			return m, nil
		case "G":
			m.viewport.GotoBottom()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width - 4
		m.height = msg.Height - 4
		if m.selected != nil {
			m.viewport = setupViewport(m.width, m.height, *m.selected)
		}
		return m, nil
	case goToDetailMsg:
		item := msg.item
		m.selected = &item
		m.cat = msg.cat
		m.viewport = setupViewport(m.width, m.height, item)
		return m, nil
	}

	return m, nil
}

func (m detailPage) View() string {
	if m.selected == nil {
		return "No item selected"
	}

	width := max(20, m.width-8)

	titleRendered := lipgloss.NewStyle().
		Foreground(accentDark()).
		Bold(true).
		MarginBottom(1).
		Width(width).
		Render(titleOf(*m.selected))

	metaRendered := lipgloss.NewStyle().
		Foreground(muted()).
		MarginBottom(1).
		Render(fmt.Sprintf("Category: %s • Published: %s", m.cat, dateOf(*m.selected, "2006-01-02 15:04:05 MST")))

	help := helpBar([]string{"j/k: scroll", "g/G: top/bottom", "esc/q: back"})

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleRendered,
		metaRendered,
		m.viewport.View(),
		help)

	return pageLayout(lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(accentDark()).
		Render(content))
}

func setupViewport(width, height int, item models.Item) viewport.Model {
	contentWidth := max(20, width-8)
	viewportHeight := max(5, height-10)

	vp := viewport.New(contentWidth, viewportHeight)
	vp.SetContent(renderDetail(item, contentWidth))
	return vp
}

// renderDetail lays out the stored fields of an item, wrapping long values to
// width.
func renderDetail(item models.Item, width int) string {
	label := lipgloss.NewStyle().Foreground(accent()).Bold(true)
	value := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	b.WriteString(label.Render("Link") + "\n")
	b.WriteString(value.Render(item.Link) + "\n\n")
	guid := item.GUID
	if guid == "" {
		guid = item.Link
	}
	b.WriteString(label.Render("GUID") + "\n")
	b.WriteString(value.Render(guid) + "\n\n")
	b.WriteString(label.Render("Title") + "\n")
	b.WriteString(value.Render(titleOf(item)) + "\n")
	return b.String()
}
