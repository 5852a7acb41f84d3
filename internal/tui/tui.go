package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"kkfeed/internal/config"
	"kkfeed/internal/ingest"
	"kkfeed/internal/models"
)

type viewMode int

const (
	tableView viewMode = iota
	filterView
	detailView
)

// Navigation messages
type goToDetailMsg struct {
	item models.Item
	cat  models.Category
}
type goToFilterMsg struct{}
type goToTableMsg struct{}
type applyFilterMsg struct {
	query string
}

type rootPage struct {
	viewMode   viewMode
	detailPage detailPage
	tablePage  tablePage
	filterPage filterPage
	width      int
	height     int
}

// Run opens the full-screen browser over the three stores.
func Run(ctx context.Context, cfg config.AppConfig) error {
	items, loadErrs := loadStores(cfg)

	m := newRootPage(items, loadErrs)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browser exited with an error: %w", err)
	}
	return nil
}

// loadStores reads every category. A broken store is shown as an error line
// in its tab rather than aborting the browser.
func loadStores(cfg config.AppConfig) (map[models.Category][]models.Item, map[models.Category]error) {
	items := make(map[models.Category][]models.Item)
	errs := make(map[models.Category]error)
	for _, cat := range models.Categories() {
		got, err := ingest.ReadStore(cfg, cat)
		items[cat] = got
		if err != nil {
			errs[cat] = err
		}
	}
	return items, errs
}

func newRootPage(items map[models.Category][]models.Item, loadErrs map[models.Category]error) rootPage {
	return rootPage{
		tablePage:  TablePage(items, loadErrs, models.Opinion, 10),
		filterPage: newFilterPage(),
	}
}

func (m rootPage) Init() tea.Cmd {
	return nil
}

func (m rootPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.viewMode {
	case tableView:
		m.tablePage, cmd = update[tablePage](m.tablePage, msg)
	case detailView:
		m.detailPage, cmd = update[detailPage](m.detailPage, msg)
	case filterView:
		m.filterPage, cmd = update[filterPage](m.filterPage, msg)
	}

	switch msg := msg.(type) {
	case goToFilterMsg:
		m.viewMode = filterView
		m.filterPage, cmd = update[filterPage](m.filterPage, msg)
	case goToTableMsg:
		m.viewMode = tableView
	case applyFilterMsg:
		m.viewMode = tableView
		m.tablePage, cmd = update[tablePage](m.tablePage, msg)
	case goToDetailMsg:
		m.viewMode = detailView
		m.detailPage, cmd = update[detailPage](m.detailPage, msg)
	case tea.WindowSizeMsg:
		var cmds []tea.Cmd

		if m.viewMode != tableView {
			m.tablePage, cmd = update[tablePage](m.tablePage, msg)
			cmds = append(cmds, cmd)
		}
		if m.viewMode != detailView {
			m.detailPage, cmd = update[detailPage](m.detailPage, msg)
			cmds = append(cmds, cmd)
		}
		if m.viewMode != filterView {
			m.filterPage, cmd = update[filterPage](m.filterPage, msg)
			cmds = append(cmds, cmd)
		}

		m.width = msg.Width - 4
		m.height = msg.Height - 4

		return m, tea.Batch(cmds...)
	}

	return m, cmd
}

func (m rootPage) View() string {
	switch m.viewMode {
	case detailView:
		return m.detailPage.View()
	case filterView:
		return m.filterPage.View()
	case tableView:
		return m.tablePage.View()
	default:
		return "Unknown View"
	}
}

func update[T any](model tea.Model, msg tea.Msg) (T, tea.Cmd) {
	newModel, cmd := model.Update(msg)
	return newModel.(T), cmd
}
