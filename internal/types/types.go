package types

import (
	"time"

	"github.com/xhad/bidwatch/internal/models"
)

// Store is the persistence contract shared by the JSON and Postgres
// backends.
type Store interface {
	IsFirstRun() bool
	Save(records []models.NoticeRecord, metadata models.RunMetadata) error
	Load() ([]models.NoticeRecord, models.RunMetadata, error)
	Append(records []models.NoticeRecord) (int, error)
	LastCrawlTime() (time.Time, bool, error)
}
