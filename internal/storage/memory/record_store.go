package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

// RecordStore keeps the latest record in a single in-process slot.
type RecordStore struct {
	mu  sync.RWMutex
	rec *mars.Record
}

// NewRecordStore constructs an empty RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{}
}

// Replace overwrites the slot.
func (s *RecordStore) Replace(_ context.Context, rec mars.Record) error {
	cp := clone(rec)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = &cp
	return nil
}

// Latest returns a copy of the stored record or mars.ErrNoRecord.
func (s *RecordStore) Latest(_ context.Context) (mars.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec == nil {
		return mars.Record{}, mars.ErrNoRecord
	}
	return clone(*s.rec), nil
}

func clone(rec mars.Record) mars.Record {
	out := rec
	out.NewsTitle = cloneString(rec.NewsTitle)
	out.NewsParagraph = cloneString(rec.NewsParagraph)
	out.FeaturedImage = cloneString(rec.FeaturedImage)
	if rec.Facts != nil {
		facts := mars.Facts{HTML: rec.Facts.HTML, Rows: append([]mars.Fact(nil), rec.Facts.Rows...)}
		out.Facts = &facts
	}
	if rec.Hemispheres != nil {
		out.Hemispheres = append([]mars.Hemisphere(nil), rec.Hemispheres...)
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
