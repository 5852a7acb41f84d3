package store

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"kkfeed/internal/models"
	"kkfeed/internal/timeparse"
)

// Channel carries the optional channel metadata written into each document.
type Channel struct {
	Title       string
	Link        string
	Description string
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title,omitempty"`
	Link        string    `xml:"link,omitempty"`
	Description string    `xml:"description,omitempty"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string  `xml:"title"`
	Link    string  `xml:"link"`
	PubDate string  `xml:"pubDate"`
	GUID    rssGUID `xml:"guid"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Render serializes items as an RSS 2.0 document in the given order.
func Render(ch Channel, items []models.Item) ([]byte, error) {
	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:       ch.Title,
			Link:        ch.Link,
			Description: ch.Description,
			Items:       make([]rssItem, 0, len(items)),
		},
	}
	for _, it := range items {
		pub := ""
		if !it.PublishedAt.IsZero() {
			pub = timeparse.Format(it.PublishedAt)
		}
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:   it.Title,
			Link:    it.Link,
			PubDate: pub,
			GUID:    rssGUID{IsPermaLink: "false", Value: it.Link},
		})
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// WriteDocument renders items to path. The document is written beside the
// target and renamed over it, so a failed write leaves the old file intact.
func WriteDocument(path string, ch Channel, items []models.Item) error {
	data, err := Render(ch, items)
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", path, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// WriteParts writes chunk i to <prefix><i+1>.xml and returns the paths written.
func WriteParts(prefix string, ch Channel, chunks [][]models.Item) ([]string, error) {
	written := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		p := PartPath(prefix, i+1)
		if err := WriteDocument(p, ch, chunk); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}

// PruneParts deletes the parts numbered above keep. Deletion is best-effort:
// failures are returned for logging and the remaining parts are still tried.
func PruneParts(prefix string, keep int) ([]string, []error) {
	parts, err := ListParts(prefix)
	if err != nil {
		return nil, []error{err}
	}
	var removed []string
	var errs []error
	for _, p := range parts {
		if p.Number <= keep {
			continue
		}
		if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove stale part %s: %w", p.Path, err))
			continue
		}
		removed = append(removed, p.Path)
	}
	return removed, errs
}
