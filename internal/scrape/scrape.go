// Package scrape runs the extractors against one browser session and assembles
// the resulting mars.Record.
package scrape

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/extract"
	"github.com/JakeFAU/mars-scraper/internal/mars"
	"github.com/JakeFAU/mars-scraper/internal/metrics"
)

// Config collects the per-source extractor settings.
type Config struct {
	News          extract.NewsConfig          `mapstructure:"news"`
	FeaturedImage extract.FeaturedImageConfig `mapstructure:"featured_image"`
	Facts         extract.FactsConfig         `mapstructure:"facts"`
	Hemispheres   extract.HemispheresConfig   `mapstructure:"hemispheres"`
}

// Field names used in logs and metrics.
const (
	FieldNews          = "news"
	FieldFeaturedImage = "featured_image"
	FieldFacts         = "facts"
	FieldHemispheres   = "hemispheres"
)

// SessionWrapper decorates a freshly opened session, e.g. to archive snapshots.
type SessionWrapper interface {
	Wrap(sess mars.Session) mars.Session
}

// Scraper is the aggregator. Each Run owns exactly one browser session.
type Scraper struct {
	browser     mars.Browser
	clock       mars.Clock
	wrapper     SessionWrapper
	logger      *zap.Logger
	news        *extract.NewsExtractor
	featured    *extract.FeaturedImageExtractor
	facts       *extract.FactsExtractor
	hemispheres *extract.HemispheresExtractor
}

// New wires a Scraper. wrapper may be nil.
func New(
	cfg Config,
	browser mars.Browser,
	docs mars.DocumentFetcher,
	clock mars.Clock,
	wrapper SessionWrapper,
	logger *zap.Logger,
) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scraper{
		browser:  browser,
		clock:    clock,
		wrapper:  wrapper,
		logger:   logger,
		news:     extract.NewNewsExtractor(cfg.News, logger.Named(FieldNews)),
		featured: extract.NewFeaturedImageExtractor(cfg.FeaturedImage, logger.Named(FieldFeaturedImage)),
		facts:    extract.NewFactsExtractor(cfg.Facts, docs, logger.Named(FieldFacts)),
	}
	if cfg.Hemispheres.Enabled {
		s.hemispheres = extract.NewHemispheresExtractor(cfg.Hemispheres, logger.Named(FieldHemispheres))
	}
	return s
}

// Run opens a session, runs news, featured image, facts and hemispheres in that
// order, and closes the session before returning. Field-level failures leave the
// field empty; only session failures are returned as errors.
func (s *Scraper) Run(ctx context.Context) (mars.Record, error) {
	start := time.Now()
	rec, err := s.run(ctx)
	outcome := "succeeded"
	if err != nil {
		outcome = "failed"
	}
	metrics.ObserveScrape(outcome, time.Since(start))
	return rec, err
}

func (s *Scraper) run(ctx context.Context) (rec mars.Record, err error) {
	sess, err := s.browser.Open(ctx)
	if err != nil {
		return mars.Record{}, fmt.Errorf("open browser session: %w", err)
	}
	if s.wrapper != nil {
		sess = s.wrapper.Wrap(sess)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			s.logger.Warn("Failed to close browser session", zap.Error(cerr))
		}
	}()

	news, err := s.news.Extract(ctx, sess)
	if err != nil {
		return mars.Record{}, fmt.Errorf("extract %s: %w", FieldNews, err)
	}
	s.observe(FieldNews, news.Err)
	if news.OK() {
		rec.NewsTitle = &news.Value.Title
		rec.NewsParagraph = &news.Value.Paragraph
	}

	image, err := s.featured.Extract(ctx, sess)
	if err != nil {
		return mars.Record{}, fmt.Errorf("extract %s: %w", FieldFeaturedImage, err)
	}
	s.observe(FieldFeaturedImage, image.Err)
	rec.FeaturedImage = image.Ptr()

	facts := s.facts.Extract(ctx)
	s.observe(FieldFacts, facts.Err)
	rec.Facts = facts.Ptr()

	if s.hemispheres != nil {
		hemis, err := s.hemispheres.Extract(ctx, sess)
		if err != nil {
			return mars.Record{}, fmt.Errorf("extract %s: %w", FieldHemispheres, err)
		}
		s.observe(FieldHemispheres, hemis.Err)
		rec.Hemispheres = hemis.Value
	}

	rec.LastModified = s.clock.Now()
	return rec, nil
}

func (s *Scraper) observe(field string, err error) {
	if err != nil {
		s.logger.Warn("Field extraction failed", zap.String("field", field), zap.Error(err))
		metrics.ObserveField(field, "missing")
		return
	}
	metrics.ObserveField(field, "found")
}

// Validate checks that every enabled source can be reached and located.
func (c Config) Validate() error {
	required := map[string]string{
		"sources.news.url":                      c.News.URL,
		"sources.news.slide_selector":           c.News.Slide,
		"sources.featured_image.url":            c.FeaturedImage.URL,
		"sources.featured_image.image_selector": c.FeaturedImage.Image,
		"sources.facts.url":                     c.Facts.URL,
	}
	if c.Hemispheres.Enabled {
		required["sources.hemispheres.url"] = c.Hemispheres.URL
		required["sources.hemispheres.item_selector"] = c.Hemispheres.Item
		required["sources.hemispheres.thumbnail_selector"] = c.Hemispheres.Thumbnail
		required["sources.hemispheres.title_selector"] = c.Hemispheres.Title
	}
	for _, key := range sortedKeys(required) {
		if required[key] == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	if err := c.FeaturedImage.Button.Validate(); err != nil {
		return fmt.Errorf("sources.featured_image.button: %w", err)
	}
	if c.Hemispheres.Enabled {
		if err := c.Hemispheres.Image.Validate(); err != nil {
			return fmt.Errorf("sources.hemispheres.image: %w", err)
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
