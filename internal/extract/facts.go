package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

// FactsConfig points the facts extractor at the facts page.
type FactsConfig struct {
	URL string `mapstructure:"url"`
}

// FactsExtractor reads the first table of the facts page. It does not need a
// browser session; the page is fetched directly.
type FactsExtractor struct {
	cfg     FactsConfig
	fetcher mars.DocumentFetcher
	logger  *zap.Logger
}

// NewFactsExtractor builds a FactsExtractor.
func NewFactsExtractor(cfg FactsConfig, fetcher mars.DocumentFetcher, logger *zap.Logger) *FactsExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FactsExtractor{cfg: cfg, fetcher: fetcher, logger: logger}
}

// Extract fetches and normalizes the facts table. Every failure is soft.
func (e *FactsExtractor) Extract(ctx context.Context) Result[mars.Facts] {
	if e.fetcher == nil {
		return Missing[mars.Facts](unavailable("no document fetcher configured"))
	}
	body, err := e.fetcher.FetchDocument(ctx, e.cfg.URL)
	if err != nil {
		return Missing[mars.Facts](unavailable("fetch %s: %v", e.cfg.URL, err))
	}
	rows, err := ParseFactsTable(body)
	if err != nil {
		return Missing[mars.Facts](err)
	}
	e.logger.Debug("facts table parsed", zap.Int("rows", len(rows)))
	return Found(mars.Facts{Rows: rows, HTML: RenderFactsHTML(rows)})
}

// ParseFactsTable reads the first <table> in body as description/value pairs.
// Header rows (all th cells, or inside thead) are skipped; every other row must
// have exactly two cells. Repeated descriptions keep their first position and
// take the last value.
func ParseFactsTable(body []byte) ([]mars.Fact, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, unavailable("parse facts page: %v", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, mismatch("no table on facts page")
	}

	var (
		rows     []mars.Fact
		index    = map[string]int{}
		rowErr   error
		rowCount int
	)
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		rowCount++
		cells := tr.ChildrenFiltered("td, th")
		if isHeaderRow(tr, cells) {
			return true
		}
		if cells.Length() != 2 {
			rowErr = mismatch("facts row %d has %d cells, want 2", rowCount, cells.Length())
			return false
		}
		fact := mars.Fact{
			Description: strings.TrimSpace(cells.Eq(0).Text()),
			Value:       strings.TrimSpace(cells.Eq(1).Text()),
		}
		if i, seen := index[fact.Description]; seen {
			rows[i].Value = fact.Value
			return true
		}
		index[fact.Description] = len(rows)
		rows = append(rows, fact)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	if len(rows) == 0 {
		return nil, mismatch("facts table has no data rows")
	}
	return rows, nil
}

func isHeaderRow(tr, cells *goquery.Selection) bool {
	if tr.ParentsFiltered("thead").Length() > 0 {
		return true
	}
	return cells.Length() == cells.Filter("th").Length()
}
