package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kkfeed/internal/models"
)

func TestRouteExclusivity(t *testing.T) {
	buckets := Route([]models.Entry{
		{Link: "https://www.kalerkantho.com/online/world/2025/08/25/1"},
	}, DefaultRules())

	assert.Len(t, buckets[models.World], 1)
	assert.Empty(t, buckets[models.Opinion])
	assert.Empty(t, buckets[models.Print])
}

func TestRoutePatterns(t *testing.T) {
	entries := []models.Entry{
		{Link: "https://x.com/online/opinion/1"},
		{Link: "https://x.com/online/sub-editorial/2"},
		{Link: "https://x.com/online/deshe-deshe/3"},
		{Link: "https://x.com/print-edition/first-page/4"},
		{Link: "https://x.com/online/national/5"},
		{ID: "https://x.com/online/editorial/6"},
		{Link: "   "},
	}
	buckets := Route(entries, DefaultRules())

	opinion := buckets[models.Opinion]
	assert.Len(t, opinion, 3)
	assert.Equal(t, "https://x.com/online/opinion/1", opinion[0].Identifier())
	assert.Equal(t, "https://x.com/online/editorial/6", opinion[2].Identifier())

	assert.Len(t, buckets[models.World], 1)
	assert.Len(t, buckets[models.Print], 1)
}

func TestRouteNoCrossCategoryDedup(t *testing.T) {
	buckets := Route([]models.Entry{{Link: "https://x.com/print-edition/world/7"}}, DefaultRules())
	assert.Len(t, buckets[models.World], 1)
	assert.Len(t, buckets[models.Print], 1)
}
