package extract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

// NewsConfig points the news extractor at the news index.
type NewsConfig struct {
	URL    string        `mapstructure:"url"`
	Slide  string        `mapstructure:"slide_selector"`
	Title  string        `mapstructure:"title_selector"`
	Teaser string        `mapstructure:"teaser_selector"`
	Wait   time.Duration `mapstructure:"wait"`
}

// News is the latest headline and its teaser paragraph.
type News struct {
	Title     string
	Paragraph string
}

// NewsExtractor reads the newest slide from the news index.
type NewsExtractor struct {
	cfg    NewsConfig
	logger *zap.Logger
}

// NewNewsExtractor builds a NewsExtractor.
func NewNewsExtractor(cfg NewsConfig, logger *zap.Logger) *NewsExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsExtractor{cfg: cfg, logger: logger}
}

// Extract returns the title and teaser of the first slide. Both are missing
// together when any part of the slide structure is absent.
func (e *NewsExtractor) Extract(ctx context.Context, s mars.Session) (Result[News], error) {
	if err := s.Visit(ctx, e.cfg.URL); err != nil {
		return Result[News]{}, fmt.Errorf("visit news index: %w", err)
	}
	if !s.WaitFor(ctx, e.cfg.Slide, e.cfg.Wait) {
		e.logger.Debug("news slide not present after wait",
			zap.String("selector", e.cfg.Slide),
			zap.Duration("wait", e.cfg.Wait),
		)
	}
	doc, err := snapshot(ctx, s)
	if err != nil {
		return Result[News]{}, err
	}

	slide := doc.Find(e.cfg.Slide).First()
	if slide.Length() == 0 {
		return Missing[News](mismatch("no element matches %q", e.cfg.Slide)), nil
	}
	title, ok := firstText(slide, e.cfg.Title)
	if !ok {
		return Missing[News](mismatch("slide has no %q", e.cfg.Title)), nil
	}
	paragraph, ok := firstText(slide, e.cfg.Teaser)
	if !ok {
		return Missing[News](mismatch("slide has no %q", e.cfg.Teaser)), nil
	}
	return Found(News{Title: title, Paragraph: paragraph}), nil
}
