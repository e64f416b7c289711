package scrape

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

// Runner produces a fresh Record.
type Runner interface {
	Run(ctx context.Context) (mars.Record, error)
}

// Service pairs a Runner with the RecordStore it refreshes.
//
// Refresh calls are not serialized: two concurrent refreshes each open their own
// session and the later Replace wins.
type Service struct {
	runner Runner
	store  mars.RecordStore
	logger *zap.Logger
}

// NewService builds a Service.
func NewService(runner Runner, store mars.RecordStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{runner: runner, store: store, logger: logger}
}

// Refresh scrapes and replaces the stored record. Nothing is written when the
// scrape fails.
func (s *Service) Refresh(ctx context.Context) (mars.Record, error) {
	rec, err := s.runner.Run(ctx)
	if err != nil {
		return mars.Record{}, fmt.Errorf("scrape: %w", err)
	}
	if err := s.store.Replace(ctx, rec); err != nil {
		return mars.Record{}, fmt.Errorf("replace record: %w", err)
	}
	s.logger.Info("Record replaced", zap.Time("last_modified", rec.LastModified))
	return rec, nil
}

// Latest returns the stored record, or mars.ErrNoRecord.
func (s *Service) Latest(ctx context.Context) (mars.Record, error) {
	rec, err := s.store.Latest(ctx)
	if err != nil {
		return mars.Record{}, fmt.Errorf("load record: %w", err)
	}
	return rec, nil
}
