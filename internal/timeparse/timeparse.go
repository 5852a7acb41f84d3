// Package timeparse turns the publish dates found in fetched entries and in
// stored documents into comparable UTC instants.
//
// Every resolution has a fallback: entries fall back to the current time,
// stored items fall back to Oldest, so callers never handle parse errors.
package timeparse

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"kkfeed/internal/models"
)

// PubDateLayout is the layout written to every <pubDate> element.
const PubDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// Oldest is the sentinel for stored items with a missing or unreadable date.
// It loses every comparison against a real timestamp.
var Oldest = time.Time{}

// TryParse parses an RFC-2822 style date permissively and then with the
// literal GMT layout. The result is UTC with whole-second precision.
func TryParse(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Oldest, false
	}
	if t, err := dateparse.ParseIn(text, time.UTC); err == nil {
		return normalize(t), true
	}
	// dateparse accepts this layout too; kept so the written format always reads back.
	if t, err := time.Parse(PubDateLayout, text); err == nil {
		return normalize(t), true
	}
	return Oldest, false
}

// Format renders t the way stored documents carry it.
func Format(t time.Time) string {
	return t.UTC().Format(PubDateLayout)
}

// ResolveStored resolves the raw <pubDate> text of a stored item.
func ResolveStored(raw string) time.Time {
	if t, ok := TryParse(raw); ok {
		return t
	}
	return Oldest
}

// Resolver resolves entry timestamps against an injectable clock.
type Resolver struct {
	Now func() time.Time
}

// NewResolver returns a Resolver using the wall clock.
func NewResolver() Resolver {
	return Resolver{Now: time.Now}
}

// ResolveEntry prefers the structured publish time, then the textual one,
// then the current time.
func (r Resolver) ResolveEntry(e models.Entry) time.Time {
	if e.PublishedParsed != nil && !e.PublishedParsed.IsZero() {
		return normalize(*e.PublishedParsed)
	}
	if t, ok := TryParse(e.Published); ok {
		return t
	}
	return normalize(r.now())
}

func (r Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// normalize converts to UTC rather than dropping the zone and keeping the wall
// clock, so offsets in the feed compare as the instants they denote.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
