// Package store persists the record collection plus run metadata.
//
// The primary backend is a single JSON document with two top-level
// sections, metadata and data. A Postgres backend with the same
// contract lives in postgres.go.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xhad/bidwatch/internal/models"
	"github.com/xhad/bidwatch/pkg/dedup"
)

// document is the on-disk shape of the store.
type document struct {
	Metadata models.RunMetadata    `json:"metadata"`
	Data     []models.NoticeRecord `json:"data"`
}

type JSONStore struct {
	path string
	mu   sync.Mutex
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// IsFirstRun reports whether the backing document does not exist or is
// empty.
func (s *JSONStore) IsFirstRun() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return true
	}
	return info.Size() == 0
}

// Save writes the full collection and metadata, overwriting any
// previous document. Missing parent directories are created.
func (s *JSONStore) Save(records []models.NoticeRecord, metadata models.RunMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(records, metadata)
}

func (s *JSONStore) save(records []models.NoticeRecord, metadata models.RunMetadata) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Metadata: metadata, Data: records}); err != nil {
		return fmt.Errorf("failed to encode store document: %w", err)
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write store document: %w", err)
	}
	return nil
}

// Load reads the full collection and metadata. A missing document
// yields an empty collection, not an error; optional fields absent
// from older documents are defaulted.
func (s *JSONStore) Load() ([]models.NoticeRecord, models.RunMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *JSONStore) load() ([]models.NoticeRecord, models.RunMetadata, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.NoticeRecord{}, models.RunMetadata{}, nil
		}
		return nil, models.RunMetadata{}, fmt.Errorf("failed to read store document: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, models.RunMetadata{}, fmt.Errorf("failed to decode store document: %w", err)
	}

	for i := range doc.Data {
		doc.Data[i].Normalize()
	}
	if doc.Data == nil {
		doc.Data = []models.NoticeRecord{}
	}

	return doc.Data, doc.Metadata, nil
}

// Append merges new records into the stored collection, skipping any
// whose id is already present. It returns the number actually added;
// when every record is a duplicate no write happens.
func (s *JSONStore) Append(records []models.NoticeRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, metadata, err := s.load()
	if err != nil {
		return 0, err
	}

	unique := dedup.Filter(records, existing)
	if len(unique) == 0 {
		return 0, nil
	}

	merged := append(existing, unique...)

	now := time.Now()
	metadata.LastIncrementalCrawl = &now
	metadata.TotalCount = len(merged)

	if err := s.save(merged, metadata); err != nil {
		return 0, err
	}
	return len(unique), nil
}

// LastCrawlTime returns the most recent crawl timestamp, preferring
// the incremental one. The second value is false when no crawl has
// been recorded.
func (s *JSONStore) LastCrawlTime() (time.Time, bool, error) {
	_, metadata, err := s.Load()
	if err != nil {
		return time.Time{}, false, err
	}

	if metadata.LastIncrementalCrawl != nil {
		return *metadata.LastIncrementalCrawl, true, nil
	}
	if metadata.LastFullCrawl != nil {
		return *metadata.LastFullCrawl, true, nil
	}
	return time.Time{}, false, nil
}
