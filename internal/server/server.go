package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"kkfeed/internal/config"
	"kkfeed/internal/ingest"
	"kkfeed/internal/models"
	"kkfeed/internal/statedb"
	"kkfeed/internal/version"
)

type ListStoreParams struct {
	Category string `json:"category"`
	Limit    *int   `json:"limit,omitempty"`
}

type FindItemParams struct {
	URL string `json:"url"`
}

type RunHistoryParams struct {
	Limit *int `json:"limit,omitempty"`
}

type handlers struct {
	cfg config.AppConfig
}

func Run(ctx context.Context, cfg config.AppConfig) error {
	server := mcp.NewServer(&mcp.Implementation{Name: "kkfeed", Version: version.Version}, nil)
	h := handlers{cfg: cfg}

	mcp.AddTool(server, &mcp.Tool{Name: "list_store", Description: "List the items of a category feed (opinion, world, print) in stored order"}, h.handleListStore)
	mcp.AddTool(server, &mcp.Tool{Name: "find_item", Description: "Find which category feeds hold a URL"}, h.handleFindItem)
	mcp.AddTool(server, &mcp.Tool{Name: "run_history", Description: "Recent kkfeed runs with per-category counts and failures"}, h.handleRunHistory)

	return server.Run(ctx, &mcp.StdioTransport{})
}

type item struct {
	Link        string     `json:"link"`
	Title       string     `json:"title"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func toItem(it models.Item) item {
	out := item{Link: it.Link, Title: it.Title}
	if !it.PublishedAt.IsZero() {
		t := it.PublishedAt
		out.PublishedAt = &t
	}
	return out
}

// Returns the items of one store, newest-touched first for single documents
func (h handlers) handleListStore(ctx context.Context, req *mcp.CallToolRequest, p ListStoreParams) (*mcp.CallToolResult, any, error) {
	cat, ok := models.ParseCategory(p.Category)
	if !ok {
		return nil, map[string]any{
			"ok":      false,
			"message": fmt.Sprintf("unknown category %q", p.Category),
			"hint":    "Use one of: opinion, world, print.",
		}, nil
	}
	lim := 50
	if p.Limit != nil && *p.Limit > 0 {
		lim = *p.Limit
	}
	items, err := ingest.ReadStore(h.cfg, cat)
	if err != nil {
		return nil, map[string]any{
			"ok":      false,
			"message": fmt.Sprintf("Failed reading the %s store", cat),
			"error":   err.Error(),
		}, nil
	}
	total := len(items)
	if lim < total {
		items = items[:lim]
	}
	out := make([]item, 0, len(items))
	for _, it := range items {
		out = append(out, toItem(it))
	}
	return nil, map[string]any{"category": string(cat), "count": len(out), "total": total, "items": out}, nil
}

func (h handlers) handleFindItem(ctx context.Context, req *mcp.CallToolRequest, p FindItemParams) (*mcp.CallToolResult, any, error) {
	url := strings.TrimSpace(p.URL)
	if url == "" {
		return nil, map[string]any{"ok": false, "message": "url is required"}, nil
	}
	var found []map[string]any
	for _, cat := range models.Categories() {
		items, err := ingest.ReadStore(h.cfg, cat)
		if err != nil {
			continue
		}
		for pos, it := range items {
			if it.Link == url {
				found = append(found, map[string]any{"category": string(cat), "position": pos + 1, "item": toItem(it)})
				break
			}
		}
	}
	return nil, map[string]any{"count": len(found), "matches": found}, nil
}

func (h handlers) handleRunHistory(ctx context.Context, req *mcp.CallToolRequest, p RunHistoryParams) (*mcp.CallToolResult, any, error) {
	lim := 10
	if p.Limit != nil && *p.Limit > 0 {
		lim = *p.Limit
	}
	db, err := statedb.OpenInitialized(h.cfg.DBPath())
	if err != nil {
		return nil, map[string]any{
			"ok":      false,
			"message": "Failed opening the kkfeed state database",
			"error":   err.Error(),
			"db_path": h.cfg.DBPath(),
		}, nil
	}
	defer db.Close()

	runs, err := statedb.RecentRuns(ctx, db, lim)
	if err != nil {
		return nil, map[string]any{
			"ok":      false,
			"message": "Query failed while reading runs",
			"error":   err.Error(),
		}, nil
	}
	return nil, map[string]any{"count": len(runs), "runs": runs}, nil
}
