package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/config"
	"github.com/JakeFAU/mars-scraper/internal/mars"
	"github.com/JakeFAU/mars-scraper/internal/mars/marstest"
	"github.com/JakeFAU/mars-scraper/internal/server"
)

func TestWriteRecordTable(t *testing.T) {
	t.Parallel()

	title := "Rover lands"
	rec := mars.Record{
		NewsTitle: &title,
		Facts: &mars.Facts{Rows: []mars.Fact{
			{Description: "Diameter:", Value: "6,779 km"},
			{Description: "Moons:", Value: "2"},
		}},
		Hemispheres:  []mars.Hemisphere{{Title: "Cerberus", ImgURL: "https://img.test/c.tif"}},
		LastModified: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	writeRecordTable(&buf, rec)
	out := buf.String()

	require.Contains(t, out, "Rover lands")
	require.Contains(t, out, missing)
	require.Contains(t, out, "2 rows")
	require.Contains(t, out, "6,779 km")
	require.Contains(t, out, "Cerberus")
	require.Contains(t, out, "2024-05-01T12:00:00Z")
}

func TestWriteRecordTableOmitsEmptySections(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeRecordTable(&buf, mars.Record{})

	require.NotContains(t, buf.String(), "Hemispheres")
	require.NotContains(t, buf.String(), "Description")
}

// TestScrapeCommandPersists replaces the application factory, so it does not
// run in parallel.
func TestScrapeCommandPersists(t *testing.T) {
	site := &closingSite{Site: marstest.NewSite().
		Page("https://news.test/", `<ul class="item_list"><li class="slide">`+
			`<div class="content_title">T</div><div class="article_teaser_body">B</div></li></ul>`).
		Page("https://gallery.test/", `<p>gallery without controls</p>`)}
	dbPath := filepath.Join(t.TempDir(), "mars.db")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
store:
  driver: sqlite
  dsn: `+dbPath+`
sources:
  news:
    url: https://news.test/
  featured_image:
    url: https://gallery.test/
  facts:
    url: https://facts.test/
  hemispheres:
    enabled: false
`), 0o600))

	original := buildApp
	t.Cleanup(func() { buildApp = original })
	buildApp = func(ctx context.Context, cfg *config.Config, opts ...server.Option) (*server.App, error) {
		opts = append(opts,
			server.WithLogger(zap.NewNop()),
			server.WithBrowser(site),
			server.WithDocumentFetcher(marstest.Documents{}),
		)
		return server.Build(ctx, cfg, opts...)
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"scrape", "--config", cfgPath, "--persist", "--output", "json"})
	require.NoError(t, root.Execute())

	var rec mars.Record
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	require.Equal(t, "T", *rec.NewsTitle)
	require.Nil(t, rec.FeaturedImage)
	require.Nil(t, rec.Facts)
	require.True(t, site.closed)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	app, err := server.Build(context.Background(), &cfg,
		server.WithLogger(zap.NewNop()), server.WithBrowser(&closingSite{Site: marstest.NewSite()}))
	require.NoError(t, err)
	defer app.Close()
	stored, err := app.Service().Latest(context.Background())
	require.NoError(t, err)
	require.Equal(t, "B", *stored.NewsParagraph)
}

func TestScrapeCommandRejectsUnknownOutput(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"scrape", "--output", "xml"})
	require.ErrorContains(t, root.Execute(), "--output")
}

type closingSite struct {
	*marstest.Site
	closed bool
}

func (c *closingSite) Close() error {
	c.closed = true
	return nil
}
