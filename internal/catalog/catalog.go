// Package catalog records every persisted index in PostgreSQL so services can
// list what is available without scanning the index directory.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/table"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS keyword_indexes (
	table_name   TEXT PRIMARY KEY,
	object_name  TEXT NOT NULL,
	index_path   TEXT NOT NULL,
	keywords     INTEGER NOT NULL,
	variables    INTEGER NOT NULL,
	tables       INTEGER NOT NULL,
	duration_ms  BIGINT NOT NULL,
	indexed_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const indexedAtIdx = `CREATE INDEX IF NOT EXISTS keyword_indexes_indexed_at ON keyword_indexes (indexed_at DESC)`

// Entry describes one persisted index.
type Entry struct {
	Table      string    `json:"table"`
	ObjectName string    `json:"object_name"`
	IndexPath  string    `json:"index_path"`
	Keywords   int       `json:"keywords"`
	Variables  int       `json:"variables"`
	Tables     int       `json:"tables"`
	DurationMs int64     `json:"duration_ms"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// EntryFromSummary builds the catalog row for a freshly written index.
func EntryFromSummary(s indexer.Summary) Entry {
	return Entry{
		Table:      s.TableName,
		ObjectName: table.ObjectName(s.TableName),
		IndexPath:  s.IndexPath,
		Keywords:   s.Keywords,
		Variables:  s.Variables,
		Tables:     s.Tables,
		DurationMs: s.Duration.Milliseconds(),
	}
}

// Store reads and writes the keyword_indexes table.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "index-catalog"),
	}
}

// Migrate creates the catalog table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, schema, indexedAtIdx)
}

// Record inserts or replaces the row for e.Table.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO keyword_indexes (table_name, object_name, index_path, keywords, variables, tables, duration_ms, indexed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (table_name) DO UPDATE SET
			object_name = EXCLUDED.object_name,
			index_path  = EXCLUDED.index_path,
			keywords    = EXCLUDED.keywords,
			variables   = EXCLUDED.variables,
			tables      = EXCLUDED.tables,
			duration_ms = EXCLUDED.duration_ms,
			indexed_at  = EXCLUDED.indexed_at`,
		e.Table, e.ObjectName, e.IndexPath, e.Keywords, e.Variables, e.Tables, e.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("recording index %s: %w", e.Table, err)
	}
	return nil
}

// Get returns the row for tableName or apperrors.ErrNotFound.
func (s *Store) Get(ctx context.Context, tableName string) (*Entry, error) {
	var e Entry
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT table_name, object_name, index_path, keywords, variables, tables, duration_ms, indexed_at
		 FROM keyword_indexes WHERE table_name = $1`,
		tableName,
	).Scan(&e.Table, &e.ObjectName, &e.IndexPath, &e.Keywords, &e.Variables, &e.Tables, &e.DurationMs, &e.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("catalog entry %s: %w", tableName, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying catalog entry %s: %w", tableName, err)
	}
	return &e, nil
}

// List returns up to limit rows, most recently indexed first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT table_name, object_name, index_path, keywords, variables, tables, duration_ms, indexed_at
		 FROM keyword_indexes ORDER BY indexed_at DESC, table_name LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Table, &e.ObjectName, &e.IndexPath, &e.Keywords, &e.Variables, &e.Tables, &e.DurationMs, &e.IndexedAt); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the row for tableName, if any.
func (s *Store) Delete(ctx context.Context, tableName string) error {
	if _, err := s.db.DB.ExecContext(ctx, `DELETE FROM keyword_indexes WHERE table_name = $1`, tableName); err != nil {
		return fmt.Errorf("deleting catalog entry %s: %w", tableName, err)
	}
	return nil
}

// Listener returns an indexer.Listener that records each index. Failures are
// logged; the index file on disk stays authoritative.
func (s *Store) Listener(ctx context.Context) indexer.Listener {
	return func(sum indexer.Summary) {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.Record(rctx, EntryFromSummary(sum)); err != nil {
			s.logger.Warn("catalog update failed", "table", sum.TableName, "error", err)
		}
	}
}
