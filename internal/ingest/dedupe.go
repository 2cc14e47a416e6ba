package ingest

import (
	"github.com/vibestream/vibestream-server/internal/models"
)

// DefaultBatchCap bounds how many records a single run may write.
const DefaultBatchCap = 30

// Dedupe collapses a batch to one record per youtube id. A later occurrence
// replaces an earlier one's fields but keeps the earlier one's position, so
// output order is first-seen order. After deduplication the batch is
// truncated to the first batchCap entries; batchCap <= 0 means no cap.
func Dedupe(records []models.Video, batchCap int) []models.Video {
	out := make([]models.Video, 0, len(records))
	seen := make(map[string]int, len(records))

	for _, record := range records {
		if i, ok := seen[record.Youtube_ID]; ok {
			out[i] = record
			continue
		}
		seen[record.Youtube_ID] = len(out)
		out = append(out, record)
	}

	if batchCap > 0 && len(out) > batchCap {
		out = out[:batchCap]
	}
	return out
}
