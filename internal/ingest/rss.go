package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"kkfeed/internal/config"
	"kkfeed/internal/httpclient"
	"kkfeed/internal/models"
)

// Batch is the result of one fetch of the remote feed.
type Batch struct {
	Title   string
	Link    string
	Entries []models.Entry
}

// Fetcher yields the current entries of the remote feed.
type Fetcher interface {
	Fetch(ctx context.Context) (*Batch, error)
}

// FetchError aborts a run: without a fetched batch no store is touched.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FeedFetcher downloads the source feed and parses it with gofeed.
// It makes a single attempt; scheduling the next try is the caller's business.
type FeedFetcher struct {
	URL    string
	Client *httpclient.Client
	Logger logrus.FieldLogger
	parser *gofeed.Parser
}

func NewFeedFetcher(src config.SourceConfig, logger logrus.FieldLogger) *FeedFetcher {
	timeout := time.Duration(src.TimeoutSec) * time.Second
	return &FeedFetcher{
		URL:    src.URL,
		Client: httpclient.New(timeout, src.UserAgent),
		Logger: logger,
		parser: gofeed.NewParser(),
	}
}

func (f *FeedFetcher) Fetch(ctx context.Context) (*Batch, error) {
	resp, err := f.Client.Get(ctx, f.URL, map[string]string{
		"Accept": "application/rss+xml, application/xml;q=0.9, */*;q=0.8",
	})
	if err != nil {
		return nil, &FetchError{URL: f.URL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: f.URL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: f.URL, Err: err}
	}
	b := &Batch{Title: strings.TrimSpace(feed.Title), Link: strings.TrimSpace(feed.Link)}
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		b.Entries = append(b.Entries, EntryFromItem(it))
	}
	if f.Logger != nil {
		f.Logger.WithFields(logrus.Fields{"url": f.URL, "entries": len(b.Entries)}).Info("feed fetched")
	}
	return b, nil
}

// EntryFromItem maps a gofeed item to an Entry; an empty title counts as absent.
func EntryFromItem(it *gofeed.Item) models.Entry {
	e := models.Entry{
		Link:            it.Link,
		ID:              it.GUID,
		Published:       it.Published,
		PublishedParsed: it.PublishedParsed,
	}
	if it.Title != "" {
		title := it.Title
		e.Title = &title
	}
	return e
}
