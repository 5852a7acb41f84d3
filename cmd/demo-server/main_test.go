package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kkfeed/internal/models"
	"kkfeed/internal/router"
)

func TestDemoFeedCoversEveryCategory(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 7, 0, 0, time.UTC)
	logger, _ := test.NewNullLogger()
	srv := httptest.NewServer(createHandler(12, func() time.Time { return now }, logger))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/rss.xml")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	feed, err := gofeed.NewParser().ParseString(string(body))
	require.NoError(t, err)
	require.Len(t, feed.Items, 12)
	assert.Equal(t, "Wed, 01 May 2024 10:00:00 GMT", feed.Items[0].Published)

	var entries []models.Entry
	for _, it := range feed.Items {
		entries = append(entries, models.Entry{Link: it.Link})
	}
	routed := router.Route(entries, router.DefaultRules())
	for _, cat := range models.Categories() {
		assert.Len(t, routed[cat], 3, cat)
	}
}

func TestDemoItemsOverlapAcrossSlots(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a := demoItems("http://x", 5, t0)
	b := demoItems("http://x", 5, t0.Add(10*time.Minute))
	assert.Equal(t, a[0].Link, b[1].Link)
	assert.True(t, strings.HasPrefix(a[0].Link, "http://x/"))
}
