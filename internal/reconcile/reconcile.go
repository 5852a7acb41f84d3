// Package reconcile merges a freshly fetched entry batch into a persisted
// store, deciding per identifier whether to insert, update or skip.
package reconcile

import (
	"slices"

	"kkfeed/internal/models"
	"kkfeed/internal/store"
	"kkfeed/internal/timeparse"
)

// Stats counts the decisions taken for one batch.
type Stats struct {
	Incoming  int
	Skipped   int // no identifier
	Inserted  int
	Updated   int
	Unchanged int
	Evicted   int
}

type Reconciler struct {
	Resolver timeparse.Resolver
}

func New(r timeparse.Resolver) *Reconciler {
	return &Reconciler{Resolver: r}
}

// MergeRecency merges entries into a single-document store kept in
// most-recently-touched-first order. New identifiers go to the front; a known
// identifier is refreshed and moved to the front only when the entry is
// strictly newer than the stored item.
func (r *Reconciler) MergeRecency(existing *store.Ordered, entries []models.Entry) Stats {
	st := Stats{Incoming: len(entries)}
	for _, e := range entries {
		link := e.Identifier()
		if link == "" {
			st.Skipped++
			continue
		}
		incoming := r.Resolver.ResolveEntry(e)

		prev, ok := existing.Get(link)
		if !ok {
			existing.PushFront(models.Item{
				Link:        link,
				Title:       e.TitleOr(""),
				PublishedAt: incoming,
				GUID:        link,
			})
			st.Inserted++
			continue
		}
		if !incoming.After(prev.PublishedAt) {
			st.Unchanged++
			continue
		}
		existing.Set(models.Item{
			Link:        link,
			Title:       e.TitleOr(prev.Title),
			PublishedAt: incoming,
			GUID:        link,
		})
		existing.MoveToFront(link)
		st.Updated++
	}
	return st
}

// MergePrint merges entries into the print store and returns its items
// sorted newest first. Updates happen in place; equal dates keep merge order.
func (r *Reconciler) MergePrint(existing *store.Ordered, entries []models.Entry) ([]models.Item, Stats) {
	st := Stats{Incoming: len(entries)}
	for _, e := range entries {
		link := e.Identifier()
		if link == "" {
			st.Skipped++
			continue
		}
		incoming := r.Resolver.ResolveEntry(e)

		prev, ok := existing.Get(link)
		if !ok {
			existing.PushBack(models.Item{
				Link:        link,
				Title:       e.TitleOr(""),
				PublishedAt: incoming,
				GUID:        link,
			})
			st.Inserted++
			continue
		}
		if !incoming.After(prev.PublishedAt) {
			st.Unchanged++
			continue
		}
		existing.Set(models.Item{
			Link:        link,
			Title:       e.TitleOr(prev.Title),
			PublishedAt: incoming,
			GUID:        link,
		})
		st.Updated++
	}

	items := existing.Items()
	slices.SortStableFunc(items, func(a, b models.Item) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	return items, st
}
