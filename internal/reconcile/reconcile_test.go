package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kkfeed/internal/models"
	"kkfeed/internal/store"
	"kkfeed/internal/timeparse"
)

var clock = time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

func ts(hour int) time.Time {
	return time.Date(2025, time.August, 1, hour, 0, 0, 0, time.UTC)
}

func entry(link string, hour int, title string) models.Entry {
	t := ts(hour)
	return models.Entry{Link: link, Title: &title, PublishedParsed: &t}
}

func item(link string, hour int) models.Item {
	return models.Item{Link: link, Title: link, PublishedAt: ts(hour), GUID: link}
}

func newReconciler() *Reconciler {
	return New(timeparse.Resolver{Now: func() time.Time { return clock }})
}

func linksOf(items []models.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Link)
	}
	return out
}

func TestMergeRecencyInsertLeads(t *testing.T) {
	s := store.OrderedFrom([]models.Item{item("A", 1), item("B", 2)})
	st := newReconciler().MergeRecency(s, []models.Entry{entry("C", 5, "c")})

	assert.Equal(t, []string{"C", "A", "B"}, linksOf(s.Items()))
	assert.Equal(t, Stats{Incoming: 1, Inserted: 1}, st)
}

func TestMergeRecencyUpdateMovesToFront(t *testing.T) {
	s := store.OrderedFrom([]models.Item{item("A", 1), item("B", 2)})
	st := newReconciler().MergeRecency(s, []models.Entry{entry("A", 3, "fresh")})

	items := s.Items()
	assert.Equal(t, []string{"A", "B"}, linksOf(items))
	assert.True(t, ts(3).Equal(items[0].PublishedAt))
	assert.Equal(t, "fresh", items[0].Title)
	assert.Equal(t, "A", items[0].GUID)
	assert.Equal(t, 1, st.Updated)
}

func TestMergeRecencyUpdateOfTailMoves(t *testing.T) {
	s := store.OrderedFrom([]models.Item{item("A", 1), item("B", 2)})
	newReconciler().MergeRecency(s, []models.Entry{entry("B", 9, "b")})
	assert.Equal(t, []string{"B", "A"}, linksOf(s.Items()))
}

func TestMergeRecencyStaleUpdateIsNoop(t *testing.T) {
	s := store.OrderedFrom([]models.Item{item("B", 2), item("A", 1)})
	st := newReconciler().MergeRecency(s, []models.Entry{entry("A", 0, "stale"), entry("B", 2, "same time")})

	items := s.Items()
	assert.Equal(t, []string{"B", "A"}, linksOf(items))
	assert.Equal(t, "A", items[1].Title)
	assert.Equal(t, "B", items[0].Title)
	assert.Equal(t, 2, st.Unchanged)
}

func TestMergeRecencyIdempotent(t *testing.T) {
	batch := []models.Entry{entry("X", 4, "x"), entry("A", 7, "a2"), entry("Y", 5, "y")}
	s := store.OrderedFrom([]models.Item{item("A", 1), item("B", 2)})
	r := newReconciler()

	r.MergeRecency(s, batch)
	first := s.Items()

	st := r.MergeRecency(s, batch)
	assert.Equal(t, first, s.Items())
	assert.Equal(t, Stats{Incoming: 3, Unchanged: 3}, st)
}

func TestMergeRecencyDuplicateInBatchInsertsOnce(t *testing.T) {
	s := store.NewOrdered()
	st := newReconciler().MergeRecency(s, []models.Entry{entry("A", 1, "one"), entry("A", 1, "two"), entry("B", 1, "b")})

	assert.Equal(t, []string{"B", "A"}, linksOf(s.Items()))
	got, _ := s.Get("A")
	assert.Equal(t, "one", got.Title)
	assert.Equal(t, 2, st.Inserted)
	assert.Equal(t, 1, st.Unchanged)
}

func TestMergeRecencySkipsMissingIdentifier(t *testing.T) {
	s := store.NewOrdered()
	st := newReconciler().MergeRecency(s, []models.Entry{{Link: "  "}, {ID: " guid-1 "}})

	assert.Equal(t, []string{"guid-1"}, linksOf(s.Items()))
	assert.Equal(t, 1, st.Skipped)
}

func TestMergeRecencyUntitledUpdateKeepsTitle(t *testing.T) {
	s := store.OrderedFrom([]models.Item{item("A", 1)})
	later := ts(4)
	newReconciler().MergeRecency(s, []models.Entry{{Link: "A", PublishedParsed: &later}})

	got, _ := s.Get("A")
	assert.Equal(t, "A", got.Title)
	assert.True(t, later.Equal(got.PublishedAt))
}

func TestMergeRecencyUnknownStoredDateLoses(t *testing.T) {
	s := store.OrderedFrom([]models.Item{{Link: "A", Title: "old", GUID: "A"}, item("B", 1)})
	newReconciler().MergeRecency(s, []models.Entry{{Link: "A", Published: "garbage"}})

	items := s.Items()
	assert.Equal(t, []string{"A", "B"}, linksOf(items))
	assert.True(t, clock.Equal(items[0].PublishedAt))
}

func TestMergePrintSortsNewestFirst(t *testing.T) {
	s := store.OrderedFrom([]models.Item{item("A", 1), item("B", 6), item("C", 3)})
	items, st := newReconciler().MergePrint(s, []models.Entry{
		entry("D", 4, "d"),
		entry("A", 8, "a"),
		entry("C", 2, "older"),
		{Title: nil},
	})

	assert.Equal(t, []string{"A", "B", "D", "C"}, linksOf(items))
	assert.Equal(t, Stats{Incoming: 4, Skipped: 1, Inserted: 1, Updated: 1, Unchanged: 1}, st)
	assert.Equal(t, "C", items[3].Title)
}

func TestMergePrintTiesKeepMergeOrder(t *testing.T) {
	s := store.OrderedFrom([]models.Item{item("A", 1), item("B", 1)})
	items, _ := newReconciler().MergePrint(s, []models.Entry{entry("C", 1, "c")})
	assert.Equal(t, []string{"A", "B", "C"}, linksOf(items))
}

func TestEnforceSingleDocCapDropsTail(t *testing.T) {
	var existing []models.Item
	for i := 0; i < 501; i++ {
		existing = append(existing, item(fmt.Sprintf("item-%03d", i), 1))
	}
	s := store.OrderedFrom(existing)
	newReconciler().MergeRecency(s, nil)

	kept := EnforceSingleDocCap(s.Items(), 0)
	require.Len(t, kept, 500)
	assert.Equal(t, "item-000", kept[0].Link)
	assert.Equal(t, "item-499", kept[499].Link)
}

func TestEnforceCap(t *testing.T) {
	items := []models.Item{item("a", 1), item("b", 1), item("c", 1)}
	assert.Len(t, EnforceCap(items, 2), 2)
	assert.Len(t, EnforceCap(items, 0), 3)
	assert.Len(t, EnforceCap(items, -1), 3)
	assert.Len(t, EnforceCap(items, 10), 3)
}

func TestChunk(t *testing.T) {
	var items []models.Item
	for i := 0; i < 250; i++ {
		items = append(items, item(fmt.Sprintf("p-%d", i), 1))
	}
	chunks := Chunk(items, 100)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	assert.Len(t, chunks[2], 50)
	assert.Equal(t, "p-200", chunks[2][0].Link)

	assert.Len(t, Chunk(items, 0), 3)
	assert.Empty(t, Chunk(nil, 100))
}
