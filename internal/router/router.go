// Package router splits a fetched batch into category buckets by URL pattern.
package router

import (
	"strings"

	"kkfeed/internal/models"
)

// Rule sends an entry to Category when its identifier contains any pattern.
type Rule struct {
	Category models.Category
	Patterns []string
}

// DefaultRules returns the URL patterns of the three category stores.
func DefaultRules() []Rule {
	return []Rule{
		{Category: models.Opinion, Patterns: []string{"/opinion/", "/editorial/", "/sub-editorial/"}},
		{Category: models.World, Patterns: []string{"/world/", "/deshe-deshe/"}},
		{Category: models.Print, Patterns: []string{"/print-edition/"}},
	}
}

// Matches reports whether link belongs to the rule's category.
func (r Rule) Matches(link string) bool {
	for _, p := range r.Patterns {
		if p != "" && strings.Contains(link, p) {
			return true
		}
	}
	return false
}

// Route buckets entries per category, preserving fetch order. Each rule is
// tested independently, so an entry may land in more than one bucket.
// Entries without an identifier or matching no rule are dropped.
func Route(entries []models.Entry, rules []Rule) map[models.Category][]models.Entry {
	out := make(map[models.Category][]models.Entry, len(rules))
	for _, e := range entries {
		link := e.Identifier()
		if link == "" {
			continue
		}
		for _, r := range rules {
			if r.Matches(link) {
				out[r.Category] = append(out[r.Category], e)
			}
		}
	}
	return out
}
