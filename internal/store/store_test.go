package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kkfeed/internal/models"
	"kkfeed/internal/timeparse"
)

func at(day int) time.Time {
	return time.Date(2025, time.August, day, 9, 30, 0, 0, time.UTC)
}

func TestWriteLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opinion.xml")
	items := []models.Item{
		{Link: "https://example.com/opinion/2", Title: "Second & <more>", PublishedAt: at(2), GUID: "https://example.com/opinion/2"},
		{Link: "https://example.com/opinion/1", Title: "First", PublishedAt: at(1), GUID: "https://example.com/opinion/1"},
		{Link: "https://example.com/opinion/0", Title: "Undated", GUID: "https://example.com/opinion/0"},
	}
	require.NoError(t, WriteDocument(path, Channel{Title: "Opinion"}, items))

	loaded, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, items, loaded.Items())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRenderFormat(t *testing.T) {
	data, err := Render(Channel{}, []models.Item{{Link: "https://x/world/1", Title: "T", PublishedAt: at(3)}})
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, s, `<rss version="2.0">`)
	assert.Contains(t, s, `<pubDate>`+timeparse.Format(at(3))+`</pubDate>`)
	assert.Contains(t, s, `<guid isPermaLink="false">https://x/world/1</guid>`)
}

func TestLoadDocumentMissingIsEmpty(t *testing.T) {
	o, err := LoadDocument(filepath.Join(t.TempDir(), "nope.xml"))
	require.NoError(t, err)
	assert.Equal(t, 0, o.Len())
}

func TestLoadDocumentMalformedIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.xml")
	require.NoError(t, os.WriteFile(path, []byte("<rss><channel><item><title>broken"), 0o644))

	o, err := LoadDocument(path)
	require.Error(t, err)
	var docErr *DocumentError
	assert.True(t, errors.As(err, &docErr))
	assert.Equal(t, path, docErr.Path)
	assert.Equal(t, 0, o.Len())
}

func TestLoadDocumentSkipsItemsWithoutLink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.xml")
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<item><title>no link</title></item>
<item><title>ok</title><link> https://x/world/1 </link><pubDate>garbage</pubDate></item>
</channel></rss>`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	o, err := LoadDocument(path)
	require.NoError(t, err)
	require.Equal(t, 1, o.Len())
	it, ok := o.Get("https://x/world/1")
	require.True(t, ok)
	assert.True(t, it.PublishedAt.Equal(timeparse.Oldest))
	assert.Equal(t, "https://x/world/1", it.GUID)
}

func TestListPartsNumericOrder(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "part")
	for _, name := range []string{"part10.xml", "part2.xml", "part1.xml", "part01.xml", "partx.xml", "part3.xml.tmp", "other.xml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	parts, err := ListParts(prefix)
	require.NoError(t, err)
	var nums []int
	for _, p := range parts {
		nums = append(nums, p.Number)
	}
	assert.Equal(t, []int{1, 2, 10}, nums)
}

func TestLoadPartsConflicts(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "print_part")
	require.NoError(t, WriteDocument(PartPath(prefix, 1), Channel{}, []models.Item{
		{Link: "a", Title: "a-newer", PublishedAt: at(5)},
		{Link: "b", Title: "b-first", PublishedAt: at(3)},
		{Link: "c", Title: "c-only", PublishedAt: at(1)},
	}))
	require.NoError(t, WriteDocument(PartPath(prefix, 2), Channel{}, []models.Item{
		{Link: "a", Title: "a-older", PublishedAt: at(4)},
		{Link: "b", Title: "b-second", PublishedAt: at(3)},
	}))

	o, errs := LoadParts(prefix)
	assert.Empty(t, errs)
	assert.Equal(t, 3, o.Len())

	a, _ := o.Get("a")
	assert.Equal(t, "a-newer", a.Title)
	b, _ := o.Get("b")
	assert.Equal(t, "b-first", b.Title)
}

func TestLoadPartsDuplicatesWithinPart(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "print_part")
	require.NoError(t, WriteDocument(PartPath(prefix, 1), Channel{}, []models.Item{
		{Link: "a", Title: "a-old", PublishedAt: at(1)},
		{Link: "b", Title: "b-first", PublishedAt: at(2)},
		{Link: "a", Title: "a-new", PublishedAt: at(6)},
		{Link: "b", Title: "b-again", PublishedAt: at(2)},
		{Link: "c", Title: "c", PublishedAt: at(3)},
	}))

	o, errs := LoadParts(prefix)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"a", "b", "c"}, links(o.Items()))

	a, _ := o.Get("a")
	assert.Equal(t, "a-new", a.Title)
	b, _ := o.Get("b")
	assert.Equal(t, "b-first", b.Title)
}

func TestPartsUnderPatternCharacters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "feeds[kk]*?")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	prefix := filepath.Join(dir, "daily_part")
	for n := 1; n <= 3; n++ {
		require.NoError(t, WriteDocument(PartPath(prefix, n), Channel{}, []models.Item{
			{Link: fmt.Sprintf("https://x/print-edition/%d", n), PublishedAt: at(n)},
		}))
	}

	parts, err := ListParts(prefix)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, PartPath(prefix, 3), parts[2].Path)

	o, errs := LoadParts(prefix)
	assert.Empty(t, errs)
	assert.Equal(t, 3, o.Len())

	removed, errs := PruneParts(prefix, 1)
	assert.Empty(t, errs)
	assert.Equal(t, []string{PartPath(prefix, 2), PartPath(prefix, 3)}, removed)
	assert.FileExists(t, PartPath(prefix, 1))
	assert.NoFileExists(t, PartPath(prefix, 2))
	assert.NoFileExists(t, PartPath(prefix, 3))
}

func TestListPartsMissingDirectory(t *testing.T) {
	parts, err := ListParts(filepath.Join(t.TempDir(), "absent", "p"))
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestLoadPartsSkipsBrokenPart(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "p")
	require.NoError(t, WriteDocument(PartPath(prefix, 1), Channel{}, []models.Item{{Link: "a", PublishedAt: at(1)}}))
	require.NoError(t, os.WriteFile(PartPath(prefix, 2), []byte("<<<"), 0o644))

	o, errs := LoadParts(prefix)
	assert.Len(t, errs, 1)
	assert.Equal(t, 1, o.Len())
}

func TestWritePartsAndPrune(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "p")
	for n := 1; n <= 4; n++ {
		require.NoError(t, WriteDocument(PartPath(prefix, n), Channel{}, nil))
	}

	chunks := [][]models.Item{{{Link: "a"}}, {{Link: "b"}}}
	written, err := WriteParts(prefix, Channel{}, chunks)
	require.NoError(t, err)
	assert.Equal(t, []string{PartPath(prefix, 1), PartPath(prefix, 2)}, written)

	removed, errs := PruneParts(prefix, len(written))
	assert.Empty(t, errs)
	assert.Equal(t, []string{PartPath(prefix, 3), PartPath(prefix, 4)}, removed)

	parts, err := ListParts(prefix)
	require.NoError(t, err)
	assert.Len(t, parts, 2)
}
