package tui

import (
	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type filterPage struct {
	width int
	input textinput.Model
}

func newFilterPage() filterPage {
	return filterPage{input: initializeInput()}
}

func (m filterPage) Init() tea.Cmd {
	return nil
}

func (m filterPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			query := m.input.Value()
			m.input.Blur()
			return m, func() tea.Msg { return applyFilterMsg{query: query} }
		case tea.KeyEsc:
			m.input.Blur()
			return m, func() tea.Msg { return goToTableMsg{} }
		case tea.KeyCtrlU:
			m.input.SetValue("")
			return m, nil
		}
		updated, cmd := m.input.Update(msg)
		m.input = updated
		return m, cmd
	case goToFilterMsg:
		cmd := m.input.Focus()
		return m, cmd
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(20, min(60, msg.Width-10))
	}

	return m, nil
}

func initializeInput() textinput.Model {
	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "title or link fragment"
	input.CharLimit = 200
	input.Width = 50
	return input
}

func (m filterPage) View() string {
	title := lipgloss.NewStyle().
		Foreground(accentDark()).
		Bold(true).
		MarginBottom(1).
		Render("Filter items")

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent()).
		Padding(0, 1).
		Render(m.input.View())

	help := helpBar([]string{"enter: apply", "ctrl+u: clear", "esc: back"})

	return pageLayout(lipgloss.JoinVertical(lipgloss.Left, title, box, help))
}
