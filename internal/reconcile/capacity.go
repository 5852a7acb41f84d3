package reconcile

import "kkfeed/internal/models"

const (
	DefaultSingleCap = 500
	DefaultChunkSize = 100
)

// EnforceSingleDocCap keeps the first limit items; limit <= 0 means DefaultSingleCap.
func EnforceSingleDocCap(items []models.Item, limit int) []models.Item {
	if limit <= 0 {
		limit = DefaultSingleCap
	}
	return EnforceCap(items, limit)
}

// EnforceCap truncates items to limit when limit is positive; otherwise it
// returns items unchanged.
func EnforceCap(items []models.Item, limit int) []models.Item {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	return items[:limit]
}

// Chunk partitions items in order into slices of size; the last may be short.
func Chunk(items []models.Item, size int) [][]models.Item {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]models.Item
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
