package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// indexView flattens a Record for the index template. Facts HTML is produced by
// the facts extractor from escaped cell text and is embedded as-is.
type indexView struct {
	HasRecord     bool
	NewsTitle     string
	NewsParagraph string
	FeaturedImage string
	Facts         template.HTML
	Hemispheres   []mars.Hemisphere
	LastModified  string
}

func newIndexView(rec *mars.Record) indexView {
	if rec == nil {
		return indexView{}
	}
	view := indexView{
		HasRecord:     true,
		NewsTitle:     deref(rec.NewsTitle),
		NewsParagraph: deref(rec.NewsParagraph),
		FeaturedImage: deref(rec.FeaturedImage),
		Hemispheres:   rec.Hemispheres,
		LastModified:  rec.LastModified.UTC().Format(time.RFC1123),
	}
	if rec.Facts != nil {
		view.Facts = template.HTML(rec.Facts.HTML) //nolint:gosec // rendered with escaped cell text
	}
	return view
}

func renderIndex(rec *mars.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, newIndexView(rec)); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
