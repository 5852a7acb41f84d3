// Command demo-server serves a synthetic Kaler Kantho style feed so kkfeed
// can be exercised without touching the real site.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"kkfeed/internal/models"
	"kkfeed/internal/store"
)

func main() {
	app := &cli.Command{
		Name:  "demo-server",
		Usage: "Serve a synthetic categorized feed at /rss.xml",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "Host to bind the demo server to"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "Port to run the demo server on"},
			&cli.IntFlag{Name: "items", Value: 40, Usage: "Number of items per feed response"},
		},
		Action: serve,
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func serve(ctx context.Context, c *cli.Command) error {
	log := logrus.New()
	addr := fmt.Sprintf("%s:%d", c.String("host"), c.Int("port"))
	server := &http.Server{
		Addr:              addr,
		Handler:           createHandler(c.Int("items"), time.Now, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", "http://"+addr+"/rss.xml").Info("demo server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down demo server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sections are the URL path segments the router keys on, plus one that no
// category claims.
var sections = []struct {
	path  string
	title string
}{
	{"opinion", "মতামত"},
	{"world", "বিশ্ব"},
	{"print-edition", "প্রিন্ট সংস্করণ"},
	{"national", "জাতীয়"},
}

func createHandler(items int, now func() time.Time, log logrus.FieldLogger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rss.xml", func(w http.ResponseWriter, r *http.Request) {
		n := items
		if v := r.URL.Query().Get("items"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
				n = parsed
			}
		}
		base := "http://" + r.Host
		data, err := store.Render(store.Channel{
			Title:       "Kaler Kantho (demo)",
			Link:        base + "/",
			Description: "Synthetic feed for kkfeed",
		}, demoItems(base, n, now()))
		if err != nil {
			log.WithError(err).Error("render demo feed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		_, _ = w.Write(data)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "kkfeed demo server\n\nfeed: http://%s/rss.xml (?items=N)\n", r.Host)
	})
	return mux
}

// demoItems builds n items cycling through the sections, one every ten
// minutes back from now. Item ids are stable per ten-minute slot, so
// consecutive requests overlap the way a live feed does.
func demoItems(base string, n int, now time.Time) []models.Item {
	slot := now.UTC().Truncate(10 * time.Minute)
	out := make([]models.Item, 0, n)
	for i := 0; i < n; i++ {
		ts := slot.Add(-time.Duration(i) * 10 * time.Minute)
		id := ts.Unix() / 600
		sec := sections[int(id)%len(sections)]
		link := fmt.Sprintf("%s/%s/%s/%d", base, sec.path, ts.Format("2006/01/02"), id)
		out = append(out, models.Item{
			Link:        link,
			Title:       fmt.Sprintf("%s সংবাদ %d", sec.title, id),
			PublishedAt: ts,
			GUID:        link,
		})
	}
	return out
}
