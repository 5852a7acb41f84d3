package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kkfeed/internal/models"
)

func sampleStores() map[models.Category][]models.Item {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var opinion []models.Item
	for i := 0; i < 12; i++ {
		opinion = append(opinion, models.Item{
			Link:        "https://example.com/opinion/" + string(rune('a'+i)),
			Title:       "মতামত " + string(rune('A'+i)),
			PublishedAt: ts.Add(-time.Duration(i) * time.Hour),
		})
	}
	return map[models.Category][]models.Item{
		models.Opinion: opinion,
		models.World: {
			{Link: "https://example.com/world/x", Title: "World X", PublishedAt: ts},
			{Link: "https://example.com/world/y", Title: "World Y"},
		},
		models.Print: nil,
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTruncateStringCountsRunes(t *testing.T) {
	assert.Equal(t, "কালের", truncateString("কালের", 5))
	assert.Equal(t, "কা...", truncateString("কালের কণ্ঠ", 5))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}

func TestFilterItems(t *testing.T) {
	items := sampleStores()[models.World]
	assert.Len(t, filterItems(items, ""), 2)
	got := filterItems(items, "world y")
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com/world/y", got[0].Link)
	assert.Len(t, filterItems(items, "/world/"), 2)
	assert.Empty(t, filterItems(items, "nothing"))
}

func TestTablePageSwitchesCategories(t *testing.T) {
	page := TablePage(sampleStores(), nil, models.Opinion, 5)
	assert.Equal(t, 3, page.totalPages)

	next, _ := page.Update(key("2"))
	page = next.(tablePage)
	assert.Equal(t, models.World, page.active)
	assert.Len(t, page.items, 2)
	assert.Equal(t, 0, page.cursor)

	next, _ = page.Update(key("3"))
	page = next.(tablePage)
	assert.Equal(t, models.Print, page.active)
	assert.Empty(t, page.items)
	_, ok := page.selected()
	assert.False(t, ok)
}

func TestTablePageCursorCrossesPages(t *testing.T) {
	page := TablePage(sampleStores(), nil, models.Opinion, 5)
	for i := 0; i < 6; i++ {
		next, _ := page.Update(key("j"))
		page = next.(tablePage)
	}
	assert.Equal(t, 1, page.currentPage)
	assert.Equal(t, 1, page.cursor)
	it, ok := page.selected()
	require.True(t, ok)
	assert.Equal(t, "https://example.com/opinion/g", it.Link)

	next, _ := page.Update(key("G"))
	page = next.(tablePage)
	it, _ = page.selected()
	assert.Equal(t, "https://example.com/opinion/l", it.Link)

	next, _ = page.Update(key("g"))
	page = next.(tablePage)
	it, _ = page.selected()
	assert.Equal(t, "https://example.com/opinion/a", it.Link)
}

func TestRootPageOpensDetailAndReturns(t *testing.T) {
	var m tea.Model = newRootPage(sampleStores(), nil)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())
	root := m.(rootPage)
	assert.Equal(t, detailView, root.viewMode)
	require.NotNil(t, root.detailPage.selected)
	assert.Equal(t, "https://example.com/opinion/a", root.detailPage.selected.Link)
	assert.Contains(t, root.View(), "Category: opinion")

	m, cmd = m.Update(key("q"))
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())
	assert.Equal(t, tableView, m.(rootPage).viewMode)
}

func TestRootPageAppliesFilter(t *testing.T) {
	var m tea.Model = newRootPage(sampleStores(), nil)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	m, cmd := m.Update(key("/"))
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())
	assert.Equal(t, filterView, m.(rootPage).viewMode)

	for _, r := range "মতামত C" {
		m, _ = m.Update(key(string(r)))
	}
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())

	root := m.(rootPage)
	assert.Equal(t, tableView, root.viewMode)
	require.Len(t, root.tablePage.items, 1)
	assert.Equal(t, "https://example.com/opinion/c", root.tablePage.items[0].Link)
}

func TestTablePageShowsLoadError(t *testing.T) {
	errs := map[models.Category]error{models.Print: errors.New("part 2 is broken")}
	page := TablePage(sampleStores(), errs, models.Print, 5)
	next, _ := page.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	view := next.(tablePage).View()
	assert.True(t, strings.Contains(view, "part 2 is broken"), view)
}
