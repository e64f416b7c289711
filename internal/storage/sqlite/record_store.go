// Package sqlite provides a SQLite-backed RecordStore for single-host
// deployments that want the record to survive restarts without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/mars-scraper/internal/mars"
	"github.com/JakeFAU/mars-scraper/internal/storage"
)

// RecordStore keeps the single record as a JSON text document in one row.
type RecordStore struct {
	db    *sql.DB
	table string
}

// Open opens (or creates) the database at dsn and ensures the record table exists.
func Open(ctx context.Context, dsn, table string) (*RecordStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	store, err := New(db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing handle.
func New(db *sql.DB, table string) (*RecordStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	table, err := storage.TableName(table)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &RecordStore{db: db, table: table}, nil
}

// Close closes the database handle.
func (s *RecordStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// EnsureSchema creates the record table when it does not exist.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY,
	document TEXT NOT NULL,
	last_modified TEXT NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Replace upserts the single record row.
func (s *RecordStore) Replace(ctx context.Context, rec mars.Record) error {
	doc, err := storage.EncodeRecord(rec)
	if err != nil {
		return err //nolint:wrapcheck
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, document, last_modified)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	document = excluded.document,
	last_modified = excluded.last_modified`, s.table)
	_, err = s.db.ExecContext(ctx, query,
		storage.RecordID,
		string(doc),
		rec.LastModified.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Latest loads the stored record or returns mars.ErrNoRecord.
func (s *RecordStore) Latest(ctx context.Context) (mars.Record, error) {
	query := fmt.Sprintf(`SELECT document FROM %s WHERE id = ?`, s.table)
	var doc string
	if err := s.db.QueryRowContext(ctx, query, storage.RecordID).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mars.Record{}, mars.ErrNoRecord
		}
		return mars.Record{}, fmt.Errorf("select record: %w", err)
	}
	return storage.DecodeRecord([]byte(doc)) //nolint:wrapcheck
}
