package tui

import (
	"strings"

	"kkfeed/internal/models"
)

// truncateString shortens s to maxLen runes. Titles are mostly Bengali, so
// byte slicing would cut through multi-byte characters.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:max(0, maxLen)])
	}
	return string(r[:maxLen-3]) + "..."
}

// filterItems keeps the items whose title or link contains query, ignoring
// case. An empty query keeps everything.
func filterItems(items []models.Item, query string) []models.Item {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	var out []models.Item
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Title), query) ||
			strings.Contains(strings.ToLower(it.Link), query) {
			out = append(out, it)
		}
	}
	return out
}

func titleOf(it models.Item) string {
	if strings.TrimSpace(it.Title) == "" {
		return "No title"
	}
	return it.Title
}

func dateOf(it models.Item, layout string) string {
	if it.PublishedAt.IsZero() {
		return "unknown"
	}
	return it.PublishedAt.Format(layout)
}
