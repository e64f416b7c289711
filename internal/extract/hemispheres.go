package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

// HemispheresConfig points the hemisphere extractor at the search results.
type HemispheresConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	BaseURL string        `mapstructure:"base_url"`
	Settle  time.Duration `mapstructure:"settle"`
	Item    string        `mapstructure:"item_selector"`
	// Thumbnail is re-resolved with Ordinal = i for every item.
	Thumbnail string `mapstructure:"thumbnail_selector"`
	// Image addresses the full-resolution image on a detail page by position.
	Image mars.Locator `mapstructure:"image"`
	Title string       `mapstructure:"title_selector"`
}

// HemispheresExtractor walks every result item and collects its detail image.
type HemispheresExtractor struct {
	cfg    HemispheresConfig
	logger *zap.Logger
}

// NewHemispheresExtractor builds a HemispheresExtractor.
func NewHemispheresExtractor(cfg HemispheresConfig, logger *zap.Logger) *HemispheresExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HemispheresExtractor{cfg: cfg, logger: logger}
}

// Extract visits each result's detail page in order. An item whose detail page
// does not match is skipped and the walk continues, so the result can be
// shorter than the number of items. A failed return to the results page aborts
// the scrape.
func (e *HemispheresExtractor) Extract(ctx context.Context, s mars.Session) (Result[[]mars.Hemisphere], error) {
	if err := s.Visit(ctx, e.cfg.URL); err != nil {
		return Result[[]mars.Hemisphere]{}, fmt.Errorf("visit hemisphere results: %w", err)
	}
	if err := pause(ctx, e.cfg.Settle); err != nil {
		return Result[[]mars.Hemisphere]{}, err
	}
	doc, err := snapshot(ctx, s)
	if err != nil {
		return Result[[]mars.Hemisphere]{}, err
	}
	count := doc.Find(e.cfg.Item).Length()
	if count == 0 {
		return Missing[[]mars.Hemisphere](mismatch("no element matches %q", e.cfg.Item)), nil
	}

	out := make([]mars.Hemisphere, 0, count)
	for i := 0; i < count; i++ {
		hemi, where, itemErr := e.item(ctx, s, i)
		switch where {
		case onDetail:
			if err := s.Back(ctx); err != nil {
				return Result[[]mars.Hemisphere]{}, fmt.Errorf("return to hemisphere results: %w", err)
			}
		case pageUnknown:
			if err := s.Visit(ctx, e.cfg.URL); err != nil {
				return Result[[]mars.Hemisphere]{}, fmt.Errorf("reload hemisphere results: %w", err)
			}
			if err := pause(ctx, e.cfg.Settle); err != nil {
				return Result[[]mars.Hemisphere]{}, err
			}
		}
		if itemErr != nil {
			if !isSoft(itemErr) {
				return Result[[]mars.Hemisphere]{}, itemErr
			}
			e.logger.Warn("hemisphere item skipped", zap.Int("index", i), zap.Error(itemErr))
			continue
		}
		out = append(out, hemi)
	}
	e.logger.Debug("hemispheres collected", zap.Int("items", count), zap.Int("kept", len(out)))
	return Found(out), nil
}

// itemPage says where the session is after reading one item.
type itemPage int

const (
	onResults itemPage = iota
	onDetail
	// pageUnknown follows a click that failed after it may have navigated.
	pageUnknown
)

// item opens the i-th detail page and reads it.
func (e *HemispheresExtractor) item(ctx context.Context, s mars.Session, i int) (mars.Hemisphere, itemPage, error) {
	thumb := mars.Nth(e.cfg.Thumbnail, i)
	if err := s.ClickNth(ctx, thumb); err != nil {
		if errors.Is(err, mars.ErrNoSuchElement) {
			return mars.Hemisphere{}, onResults, mismatch("click %s: %v", thumb, err)
		}
		return mars.Hemisphere{}, pageUnknown, mismatch("click %s: %v", thumb, err)
	}
	doc, err := snapshot(ctx, s)
	if err != nil {
		return mars.Hemisphere{}, onDetail, err
	}
	src, ok := attr(locate(doc.Selection, e.cfg.Image), "src")
	if !ok {
		return mars.Hemisphere{}, onDetail, mismatch("detail page has no %s with a src", e.cfg.Image)
	}
	title, ok := firstText(doc.Selection, e.cfg.Title)
	if !ok {
		return mars.Hemisphere{}, onDetail, mismatch("detail page has no %q", e.cfg.Title)
	}
	imgURL, err := absoluteURL(e.cfg.BaseURL, src)
	if err != nil {
		return mars.Hemisphere{}, onDetail, mismatch("%v", err)
	}
	return mars.Hemisphere{Title: title, ImgURL: imgURL}, onDetail, nil
}
