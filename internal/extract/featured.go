package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

// FeaturedImageConfig points the featured image extractor at the gallery.
type FeaturedImageConfig struct {
	URL     string `mapstructure:"url"`
	BaseURL string `mapstructure:"base_url"`
	// Button is the control that opens the full-resolution view. The default is
	// the second button on the page, which is only as stable as the gallery layout.
	Button mars.Locator `mapstructure:"button"`
	Image  string       `mapstructure:"image_selector"`
}

// FeaturedImageExtractor finds the full-size featured image URL.
type FeaturedImageExtractor struct {
	cfg    FeaturedImageConfig
	logger *zap.Logger
}

// NewFeaturedImageExtractor builds a FeaturedImageExtractor.
func NewFeaturedImageExtractor(cfg FeaturedImageConfig, logger *zap.Logger) *FeaturedImageExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeaturedImageExtractor{cfg: cfg, logger: logger}
}

// Extract clicks through to the full image view and returns the absolute image URL.
func (e *FeaturedImageExtractor) Extract(ctx context.Context, s mars.Session) (Result[string], error) {
	if err := s.Visit(ctx, e.cfg.URL); err != nil {
		return Result[string]{}, fmt.Errorf("visit image gallery: %w", err)
	}
	if err := s.ClickNth(ctx, e.cfg.Button); err != nil {
		return Missing[string](mismatch("click %s: %v", e.cfg.Button, err)), nil
	}
	doc, err := snapshot(ctx, s)
	if err != nil {
		return Result[string]{}, err
	}

	src, ok := attr(doc.Find(e.cfg.Image).First(), "src")
	if !ok {
		return Missing[string](mismatch("no %q with a src", e.cfg.Image)), nil
	}
	abs, err := absoluteURL(e.cfg.BaseURL, src)
	if err != nil {
		return Missing[string](mismatch("%v", err)), nil
	}
	e.logger.Debug("featured image resolved", zap.String("src", src), zap.String("url", abs))
	return Found(abs), nil
}
