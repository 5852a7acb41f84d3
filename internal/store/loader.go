package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed/rss"

	"kkfeed/internal/models"
	"kkfeed/internal/timeparse"
)

// DocumentError reports a stored document that exists but could not be read.
// Loaders return it alongside an empty store; callers log it and carry on.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("read document %s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// LoadDocument reads one RSS document into an ordered store.
// A missing file yields an empty store and no error.
func LoadDocument(path string) (*Ordered, error) {
	items, err := readItems(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewOrdered(), nil
		}
		return NewOrdered(), &DocumentError{Path: path, Err: err}
	}
	return OrderedFrom(items), nil
}

func readItems(path string) ([]models.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fp := rss.Parser{}
	feed, err := fp.Parse(f)
	if err != nil {
		return nil, err
	}
	items := make([]models.Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}
		items = append(items, models.Item{
			Link:        link,
			Title:       it.Title,
			PublishedAt: timeparse.ResolveStored(it.PubDate),
			GUID:        link,
		})
	}
	return items, nil
}

// Part is one numbered document of a multi-document store.
type Part struct {
	Path   string
	Number int
}

// PartPath returns the document path for the 1-based part number n.
func PartPath(prefix string, n int) string {
	return fmt.Sprintf("%s%d.xml", prefix, n)
}

// ListParts finds the existing <prefix>N.xml documents, ordered by N. Names
// are matched literally, so the prefix may contain any character.
func ListParts(prefix string) ([]Part, error) {
	dir, base := filepath.Dir(prefix), filepath.Base(prefix)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var parts []Part
	for _, e := range entries {
		rest, ok := strings.CutPrefix(e.Name(), base)
		if !ok {
			continue
		}
		num, ok := strings.CutSuffix(rest, ".xml")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil || n < 1 || strconv.Itoa(n) != num {
			continue
		}
		parts = append(parts, Part{Path: PartPath(prefix, n), Number: n})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Number < parts[j].Number })
	return parts, nil
}

// LoadParts merges every existing part into one store, reading parts in
// numeric order and items in document order. When a link appears more than
// once, within a part or across parts, the strictly newer item replaces the
// stored one in place; on equal dates the first copy is kept. Unreadable
// parts are skipped and reported.
func LoadParts(prefix string) (*Ordered, []error) {
	merged := NewOrdered()
	parts, err := ListParts(prefix)
	if err != nil {
		return merged, []error{err}
	}
	var errs []error
	for _, p := range parts {
		items, err := readItems(p.Path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, &DocumentError{Path: p.Path, Err: err})
			}
			continue
		}
		for _, it := range items {
			prev, ok := merged.Get(it.Link)
			if !ok {
				merged.PushBack(it)
				continue
			}
			if it.PublishedAt.After(prev.PublishedAt) {
				merged.Set(it)
			}
		}
	}
	return merged, errs
}
