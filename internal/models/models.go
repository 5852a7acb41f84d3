package models

import (
	"strings"
	"time"
)

// Category names one of the persisted feed stores.
type Category string

const (
	Opinion Category = "opinion"
	World   Category = "world"
	Print   Category = "print"
)

// Categories lists the stores in the order a run processes them.
func Categories() []Category {
	return []Category{Opinion, World, Print}
}

// ParseCategory accepts the category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case Opinion:
		return Opinion, true
	case World:
		return World, true
	case Print, "print-edition":
		return Print, true
	}
	return "", false
}

// Entry is a single item of the freshly fetched remote feed.
// Optional fields are nil or empty when the source omitted them.
type Entry struct {
	Link            string
	ID              string
	Title           *string // nil: insert as "", keep stored title on update
	Published       string
	PublishedParsed *time.Time
}

// Identifier returns the trimmed link, falling back to the id.
// An empty result means the entry cannot be stored.
func (e Entry) Identifier() string {
	for _, s := range []string{e.Link, e.ID} {
		if v := strings.TrimSpace(s); v != "" {
			return v
		}
	}
	return ""
}

// TitleOr returns the entry title or def when the entry carries none.
func (e Entry) TitleOr(def string) string {
	if e.Title == nil {
		return def
	}
	return *e.Title
}

// Item is a durable record of a store, keyed by Link.
type Item struct {
	Link        string
	Title       string
	PublishedAt time.Time // UTC; zero means unknown and sorts as oldest
	GUID        string
}
