package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kkfeed/internal/models"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	ac, err := LoadAppConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), ac)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
source:
  url: http://localhost:8080/rss
  timeout: 5
output:
  dir: /srv/feeds
  print_prefix: print_part
limits:
  single_cap: 50
  print_max_items: 500
  print_chunk_size: 25
categories:
  world: ["/international/"]
  bogus: ["/x/"]
database_path: state/kk.db
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	ac, err := LoadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/rss", ac.Source.URL)
	assert.Equal(t, 5, ac.Source.TimeoutSec)
	assert.Equal(t, LimitsConfig{SingleCap: 50, PrintMaxItems: 500, PrintChunkSize: 25}, ac.Limits)
	assert.Equal(t, map[models.Category][]string{models.World: {"/international/"}}, ac.Categories)
	assert.Equal(t, "debug", ac.LogLevel)

	assert.Equal(t, "/srv/feeds/opinion.xml", ac.DocumentPath(models.Opinion))
	assert.Equal(t, "", ac.DocumentPath(models.Print))
	assert.Equal(t, "/srv/feeds/print_part", ac.PrintPrefix())
	assert.Equal(t, "/srv/feeds/state/kk.db", ac.DBPath())
}

func TestLoadBrokenFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: [unclosed"), 0o644))

	ac, err := LoadAppConfig(path)
	assert.Error(t, err)
	assert.Equal(t, Default(), ac)
}

func TestWriteConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := Default()
	want.Source.URL = "http://example.com/rss.xml"
	want.Limits.PrintMaxItems = 300
	want.Categories = map[models.Category][]string{models.Opinion: {"/opinion/", "/column/"}}

	require.NoError(t, WriteConfig(path, want))
	got, err := LoadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	bak, err := BackupFile(path)
	require.NoError(t, err)
	assert.FileExists(t, bak)
}
