package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xhad/bidwatch/internal/models"
	"github.com/xhad/bidwatch/pkg/dedup"
)

type PostgresConfig struct {
	ConnString string
	TableName  string
}

// PostgresStore offers the same contract as JSONStore against a
// notices table, for deployments that point a SQL dashboard at the
// data instead of the JSON document.
type PostgresStore struct {
	config PostgresConfig
	pool   *pgxpool.Pool
}

func NewPostgresStore(config PostgresConfig) (*PostgresStore, error) {
	if config.TableName == "" {
		config.TableName = "notices"
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	ps := &PostgresStore{
		config: config,
		pool:   pool,
	}

	if err := ps.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return ps, nil
}

func (ps *PostgresStore) initialize() error {
	ctx := context.Background()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		)`, ps.config.TableName)

	if _, err := ps.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createMeta := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s_metadata (
			id INT PRIMARY KEY CHECK (id = 1),
			doc JSONB NOT NULL
		)`, ps.config.TableName)

	if _, err := ps.pool.Exec(ctx, createMeta); err != nil {
		return fmt.Errorf("failed to create metadata table: %v", err)
	}

	return nil
}

// IsFirstRun reports whether the notices table holds no records.
func (ps *PostgresStore) IsFirstRun() bool {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", ps.config.TableName)
	if err := ps.pool.QueryRow(context.Background(), query).Scan(&count); err != nil {
		return true
	}
	return count == 0
}

// Save replaces the stored collection and metadata in one transaction.
func (ps *PostgresStore) Save(records []models.NoticeRecord, metadata models.RunMetadata) error {
	ctx := context.Background()

	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE %s", ps.config.TableName)); err != nil {
		return fmt.Errorf("failed to truncate table: %v", err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2)", ps.config.TableName)
	for _, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %v", rec.ID, err)
		}
		if _, err := tx.Exec(ctx, insert, rec.ID, doc); err != nil {
			return fmt.Errorf("failed to insert record: %v", err)
		}
	}

	if err := ps.saveMetadata(ctx, tx, metadata); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

func (ps *PostgresStore) saveMetadata(ctx context.Context, tx pgx.Tx, metadata models.RunMetadata) error {
	doc, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %v", err)
	}

	upsert := fmt.Sprintf(`
		INSERT INTO %s_metadata (id, doc) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`,
		ps.config.TableName)

	if _, err := tx.Exec(ctx, upsert, doc); err != nil {
		return fmt.Errorf("failed to save metadata: %v", err)
	}
	return nil
}

// Load returns every stored record in insertion order plus metadata.
func (ps *PostgresStore) Load() ([]models.NoticeRecord, models.RunMetadata, error) {
	ctx := context.Background()

	query := fmt.Sprintf("SELECT doc FROM %s ORDER BY seq", ps.config.TableName)
	rows, err := ps.pool.Query(ctx, query)
	if err != nil {
		return nil, models.RunMetadata{}, fmt.Errorf("failed to query records: %v", err)
	}
	defer rows.Close()

	records := []models.NoticeRecord{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, models.RunMetadata{}, fmt.Errorf("failed to scan row: %v", err)
		}
		var rec models.NoticeRecord
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, models.RunMetadata{}, fmt.Errorf("failed to decode record: %v", err)
		}
		rec.Normalize()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, models.RunMetadata{}, fmt.Errorf("failed to read rows: %v", err)
	}

	var metadata models.RunMetadata
	metaQuery := fmt.Sprintf("SELECT doc FROM %s_metadata WHERE id = 1", ps.config.TableName)
	var metaDoc []byte
	err = ps.pool.QueryRow(ctx, metaQuery).Scan(&metaDoc)
	if err == nil {
		if err := json.Unmarshal(metaDoc, &metadata); err != nil {
			return nil, models.RunMetadata{}, fmt.Errorf("failed to decode metadata: %v", err)
		}
	}

	return records, metadata, nil
}

// Append inserts the records not already present and returns how many
// were added. Duplicates cause no write at all.
func (ps *PostgresStore) Append(records []models.NoticeRecord) (int, error) {
	ctx := context.Background()

	existing, metadata, err := ps.Load()
	if err != nil {
		return 0, err
	}

	unique := dedup.Filter(records, existing)
	if len(unique) == 0 {
		return 0, nil
	}

	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	insert := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2)", ps.config.TableName)
	for _, rec := range unique {
		doc, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("failed to encode record %s: %v", rec.ID, err)
		}
		if _, err := tx.Exec(ctx, insert, rec.ID, doc); err != nil {
			return 0, fmt.Errorf("failed to insert record: %v", err)
		}
	}

	now := time.Now()
	metadata.LastIncrementalCrawl = &now
	metadata.TotalCount = len(existing) + len(unique)

	if err := ps.saveMetadata(ctx, tx, metadata); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %v", err)
	}
	return len(unique), nil
}

// LastCrawlTime mirrors JSONStore.LastCrawlTime.
func (ps *PostgresStore) LastCrawlTime() (time.Time, bool, error) {
	_, metadata, err := ps.Load()
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

func (ps *PostgresStore) Close() {
	if ps.pool != nil {
		ps.pool.Close()
	}
}
