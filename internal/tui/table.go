package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"kkfeed/internal/models"
)

type tablePage struct {
	stores   map[models.Category][]models.Item
	loadErrs map[models.Category]error
	active   models.Category
	filter   string
	items    []models.Item
	table    *table.Table

	ready       bool
	cursor      int
	currentPage int
	totalPages  int
	tableWidth  int
	tableHeight int
	titleWidth  int
	dateWidth   int
	linkWidth   int
	pageSize    int
}

func TablePage(stores map[models.Category][]models.Item, loadErrs map[models.Category]error, active models.Category, pageSize int) tablePage {
	m := tablePage{
		stores:   stores,
		loadErrs: loadErrs,
		pageSize: max(1, pageSize),
	}
	m.switchCategory(active)
	return m
}

func (m tablePage) Init() tea.Cmd {
	return nil
}

func (m tablePage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter", " ":
			if it, ok := m.selected(); ok {
				cat := m.active
				return m, func() tea.Msg { return goToDetailMsg{item: it, cat: cat} }
			}
			return m, nil
		case "1", "2", "3":
			cats := models.Categories()
			m.switchCategory(cats[int(msg.String()[0]-'1')])
			return m, tea.ClearScreen
		case "/":
			return m, func() tea.Msg { return goToFilterMsg{} }
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			} else if m.currentPage > 0 {
				m.currentPage--
				m.cursor = m.pageSize - 1
			}
			m.updateTableRows()
			return m, nil
		case "j", "down":
			itemsOnCurrentPage := min(m.pageSize, len(m.items)-m.currentPage*m.pageSize)
			if m.cursor < itemsOnCurrentPage-1 {
				m.cursor++
			} else if m.currentPage < m.totalPages-1 {
				m.currentPage++
				m.cursor = 0
			}
			m.updateTableRows()
			return m, nil
		case "g":
			m.currentPage = 0
			m.cursor = 0
			m.updateTableRows()
			return m, nil
		case "G":
			if len(m.items) == 0 {
				return m, nil
			}
			m.currentPage = m.totalPages - 1
			lastPageItems := len(m.items) % m.pageSize
			if lastPageItems == 0 {
				lastPageItems = m.pageSize
			}
			m.cursor = lastPageItems - 1
			m.updateTableRows()
			return m, nil
		case "l":
			if m.currentPage < m.totalPages-1 {
				m.currentPage++
				m.cursor = 0
				m.updateTableRows()
				return m, tea.ClearScreen
			}
			return m, nil
		case "h":
			if m.currentPage > 0 {
				m.currentPage--
				m.cursor = 0
				m.updateTableRows()
				return m, tea.ClearScreen
			}
			return m, nil
		}
	case applyFilterMsg:
		m.filter = msg.query
		m.switchCategory(m.active)
		return m, tea.ClearScreen
	case tea.WindowSizeMsg:
		m.tableWidth = msg.Width - 2
		m.tableHeight = msg.Height
		m.configureTable(msg.Width, msg.Height-6)
		m.ready = true
		return m, tea.ClearScreen
	}

	return m, nil
}

func (m tablePage) View() string {
	if !m.ready {
		return "...Loading"
	}

	counts := make(map[models.Category]int, len(m.stores))
	for cat, items := range m.stores {
		counts[cat] = len(items)
	}
	menu := renderMenu(m.active, counts, m.tableWidth)

	var body string
	switch {
	case m.loadErrs[m.active] != nil && len(m.items) == 0:
		body = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).
			Render(fmt.Sprintf("Could not read the %s store: %v", m.active, m.loadErrs[m.active]))
	case len(m.items) == 0 && m.filter != "":
		body = fmt.Sprintf("No %s items match %q", m.active, m.filter)
	case len(m.items) == 0:
		body = fmt.Sprintf("The %s store is empty. Run 'kkfeed run' first.", m.active)
	default:
		body = m.table.Render()
	}

	status := fmt.Sprintf("page %d/%d • %d items", m.currentPage+1, max(1, m.totalPages), len(m.items))
	if m.filter != "" {
		status += fmt.Sprintf(" • filter: %q", m.filter)
	}
	statusLine := lipgloss.NewStyle().Foreground(muted()).Render(status)

	help := helpBar([]string{"1/2/3: category", "j/k: move", "l/h: page", "g/G: home/end", "/: filter", "enter: details", "q: quit"})

	return pageLayout(lipgloss.JoinVertical(lipgloss.Left, menu, body, statusLine, help))
}

// switchCategory shows cat with the current filter applied and resets the
// cursor to the first row.
func (m *tablePage) switchCategory(cat models.Category) {
	m.active = cat
	m.items = filterItems(m.stores[cat], m.filter)
	m.cursor = 0
	m.currentPage = 0
	m.totalPages = (len(m.items) + m.pageSize - 1) / m.pageSize
	m.updateTableRows()
}

func (m tablePage) selected() (models.Item, bool) {
	idx := m.currentPage*m.pageSize + m.cursor
	if idx < 0 || idx >= len(m.items) {
		return models.Item{}, false
	}
	return m.items[idx], true
}

func (m *tablePage) updateTableRows() {
	if len(m.items) == 0 {
		m.table = nil
		return
	}

	headers := []string{
		truncateString("#", 4),
		truncateString("Title", m.titleWidth),
		truncateString("Published", m.dateWidth),
		truncateString("Link", m.linkWidth),
	}

	var rows [][]string
	startIdx := m.currentPage * m.pageSize
	endIdx := min(startIdx+m.pageSize, len(m.items))

	for i := startIdx; i < endIdx; i++ {
		item := m.items[i]
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			truncateString(titleOf(item), m.titleWidth),
			truncateString(dateOf(item, "2006-01-02 15:04"), m.dateWidth),
			truncateString(item.Link, m.linkWidth),
		})
	}

	if len(rows) > 0 {
		m.cursor = max(0, min(m.cursor, len(rows)-1))
	}

	borderStyle := lipgloss.NewStyle().Foreground(accentDark())
	headerStyle := lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Foreground(accentDark()).
		Align(lipgloss.Center)

	cursor := m.cursor
	t := table.New().
		Border(lipgloss.ThickBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row == cursor {
				return lipgloss.NewStyle().
					Padding(0, 1).
					Background(accent()).
					Foreground(lipgloss.Color("0"))
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	if m.tableWidth > 0 {
		t = t.Width(m.tableWidth)
	}
	m.table = t
}

// configureTable derives the page size and column widths from the window.
func (m *tablePage) configureTable(width, height int) {
	m.pageSize = max(5, height-6)
	m.totalPages = (len(m.items) + m.pageSize - 1) / m.pageSize

	globalCursor := m.currentPage*m.pageSize + m.cursor
	if globalCursor >= len(m.items) {
		globalCursor = max(0, len(m.items)-1)
	}
	m.currentPage = globalCursor / m.pageSize
	m.cursor = globalCursor % m.pageSize

	m.dateWidth = 16
	// 5 borders plus 2 chars of padding for each of the 4 columns
	borderPaddingWidth := 5 + 2*4
	remaining := width - 4 - m.dateWidth - borderPaddingWidth

	m.titleWidth = max(20, remaining*60/100)
	m.linkWidth = max(20, remaining-m.titleWidth)

	m.updateTableRows()
}
