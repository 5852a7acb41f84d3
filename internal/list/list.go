package list

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"kkfeed/internal/config"
	"kkfeed/internal/ingest"
	"kkfeed/internal/models"
	"kkfeed/internal/statedb"
)

// Run prints the items of one category in stored order.
func Run(ctx context.Context, cfg config.AppConfig, cat models.Category, limit int) error {
	return printItems(os.Stdout, cfg, cat, limit)
}

func printItems(w io.Writer, cfg config.AppConfig, cat models.Category, limit int) error {
	items, err := ingest.ReadStore(cfg, cat)
	if err != nil {
		return fmt.Errorf("failed reading the %s store: %w", cat, err)
	}
	if len(items) == 0 {
		fmt.Fprintf(w, "The %s store is empty.\n", cat)
		fmt.Fprintln(w, "Hint: Run 'kkfeed run' to fetch the feed and populate the stores.")
		return nil
	}
	total := len(items)
	if limit > 0 && limit < total {
		items = items[:limit]
	}
	fmt.Fprintf(w, "Showing %d of %d items in the %s store:\n\n", len(items), total, cat)

	for i, it := range items {
		title := it.Title
		if strings.TrimSpace(title) == "" {
			title = "No title"
		}
		date := "unknown"
		if !it.PublishedAt.IsZero() {
			date = it.PublishedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "#%d %s\n", i+1, title)
		fmt.Fprintf(w, "Link: %s\n", it.Link)
		fmt.Fprintf(w, "Date: %s\n", date)
		fmt.Fprintln(w, strings.Repeat("-", 80))
	}
	return nil
}

// History prints the latest runs recorded in the state database.
func History(ctx context.Context, cfg config.AppConfig, limit int) error {
	return printHistory(ctx, os.Stdout, cfg, limit)
}

func printHistory(ctx context.Context, w io.Writer, cfg config.AppConfig, limit int) error {
	dbPath := cfg.DBPath()
	if !fileExists(dbPath) {
		fmt.Fprintf(w, "kkfeed state database not found at %s\n", dbPath)
		fmt.Fprintln(w, "Hint: Run 'kkfeed run' once to create it.")
		return nil
	}
	db, err := statedb.OpenInitialized(dbPath)
	if err != nil {
		return fmt.Errorf("failed opening the state database: %w", err)
	}
	defer db.Close()

	runs, err := statedb.RecentRuns(ctx, db, limit)
	if err != nil {
		return fmt.Errorf("query failed while reading runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return nil
	}
	for _, r := range runs {
		dur := "running"
		if !r.FinishedAt.IsZero() {
			dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "Run %d  %s  %s  fetched=%d  (%s)\n", r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status, r.Fetched, dur)
		for _, c := range r.Categories {
			fmt.Fprintf(w, "  %-8s in=%d new=%d upd=%d same=%d evicted=%d items=%d docs=%d pruned=%d\n",
				c.Category, c.Incoming, c.Inserted, c.Updated, c.Unchanged, c.Evicted, c.Items, c.Documents, c.Pruned)
		}
		for _, f := range r.Failures {
			cat := f.Category
			if cat == "" {
				cat = "run"
			}
			fmt.Fprintf(w, "  ! %s/%s: %s\n", cat, f.Stage, f.Cause)
		}
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err == nil {
		return true
	}
	return false
}
