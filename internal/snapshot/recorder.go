// Package snapshot archives the HTML a scrape session reads so extraction
// mismatches can be diagnosed after the fact.
package snapshot

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/mars"
	"github.com/JakeFAU/mars-scraper/internal/metrics"
)

const contentType = "text/html; charset=utf-8"

// Recorder wraps sessions so every successful HTML read is written to a
// BlobStore under <prefix>/<scrape id>/<seq>-<host>.html.
type Recorder struct {
	store  mars.BlobStore
	ids    mars.IDGenerator
	prefix string
	logger *zap.Logger
}

// NewRecorder builds a Recorder.
func NewRecorder(store mars.BlobStore, ids mars.IDGenerator, prefix string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:  store,
		ids:    ids,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// Wrap returns a session that archives the pages read through sess.
func (r *Recorder) Wrap(sess mars.Session) mars.Session {
	id, err := r.ids.NewID()
	if err != nil {
		r.logger.Warn("Failed to generate scrape id", zap.Error(err))
		id = time.Now().UTC().Format("20060102T150405.000000000")
	}
	return &session{Session: sess, recorder: r, scrapeID: id}
}

type session struct {
	mars.Session
	recorder *Recorder
	scrapeID string

	mu      sync.Mutex
	seq     int
	current string
}

func (s *session) Visit(ctx context.Context, url string) error {
	if err := s.Session.Visit(ctx, url); err != nil {
		return err //nolint:wrapcheck // decorator is transparent
	}
	s.mu.Lock()
	s.current = url
	s.mu.Unlock()
	return nil
}

func (s *session) HTML(ctx context.Context) (string, error) {
	html, err := s.Session.HTML(ctx)
	if err != nil {
		return "", err //nolint:wrapcheck // decorator is transparent
	}
	s.archive(ctx, html)
	return html, nil
}

// archive never fails the read; lost snapshots are logged and counted.
func (s *session) archive(ctx context.Context, html string) {
	s.mu.Lock()
	s.seq++
	name := objectName(s.recorder.prefix, s.scrapeID, s.seq, s.current)
	s.mu.Unlock()

	uri, err := s.recorder.store.PutObject(ctx, name, contentType, []byte(html))
	if err != nil {
		metrics.ObserveSnapshot("failed")
		s.recorder.logger.Warn("Failed to archive snapshot", zap.String("object", name), zap.Error(err))
		return
	}
	metrics.ObserveSnapshot("stored")
	s.recorder.logger.Debug("Archived snapshot", zap.String("uri", uri))
}

func objectName(prefix, scrapeID string, seq int, pageURL string) string {
	file := fmt.Sprintf("%03d-%s.html", seq, metrics.SanitizeSite(pageURL))
	if prefix == "" {
		return path.Join(scrapeID, file)
	}
	return path.Join(prefix, scrapeID, file)
}
