// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/mars-scraper/internal/mars"
	"github.com/JakeFAU/mars-scraper/internal/storage"
)

// RecordStoreConfig controls the Postgres connection pool used for the record row.
type RecordStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// RecordStore keeps the single record as a JSONB document in one row.
type RecordStore struct {
	pool  pool
	table string
}

// NewRecordStore creates a Postgres-backed RecordStore using the provided config.
func NewRecordStore(ctx context.Context, cfg RecordStoreConfig) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	table, err := storage.TableName(cfg.Table)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecordStore{pool: p, table: table}, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(p pool, table string) (*RecordStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := storage.TableName(table)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &RecordStore{pool: p, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the record table when it does not exist.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id SMALLINT PRIMARY KEY,
	document JSONB NOT NULL,
	last_modified TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Replace upserts the single record row.
func (s *RecordStore) Replace(ctx context.Context, rec mars.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	doc, err := storage.EncodeRecord(rec)
	if err != nil {
		return err //nolint:wrapcheck
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, document, last_modified)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE
SET document = EXCLUDED.document,
	last_modified = EXCLUDED.last_modified`, s.table)
	if _, err := s.pool.Exec(ctx, query, storage.RecordID, doc, rec.LastModified); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Latest loads the stored record or returns mars.ErrNoRecord.
func (s *RecordStore) Latest(ctx context.Context) (mars.Record, error) {
	if s == nil || s.pool == nil {
		return mars.Record{}, fmt.Errorf("record store is not configured")
	}
	query := fmt.Sprintf(`SELECT document FROM %s WHERE id = $1`, s.table)
	var doc []byte
	if err := s.pool.QueryRow(ctx, query, storage.RecordID).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mars.Record{}, mars.ErrNoRecord
		}
		return mars.Record{}, fmt.Errorf("select record: %w", err)
	}
	return storage.DecodeRecord(doc) //nolint:wrapcheck
}
