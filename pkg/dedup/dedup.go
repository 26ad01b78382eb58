// Package dedup filters already-seen records out of a new batch.
package dedup

import "github.com/xhad/bidwatch/internal/models"

// Filter returns the records from batch whose id does not appear in
// existing. Identity is exact id equality only. Duplicate ids inside
// the batch itself collapse to their first occurrence.
func Filter(batch, existing []models.NoticeRecord) []models.NoticeRecord {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec.ID] = struct{}{}
	}

	unique := make([]models.NoticeRecord, 0, len(batch))
	for _, rec := range batch {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		unique = append(unique, rec)
	}

	return unique
}
