package scrape

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/mars-scraper/internal/mars"
	"github.com/JakeFAU/mars-scraper/internal/mars/marstest"
	"github.com/JakeFAU/mars-scraper/internal/storage/memory"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRunAssemblesRecord(t *testing.T) {
	t.Parallel()

	site := marsSite()
	s := New(testConfig(), site, factsDocuments(), marstest.NewClock(epoch, time.Minute), nil, nil)

	rec, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, "NASA's Mars Helicopter Completes Flight", *rec.NewsTitle)
	require.Equal(t, "The rotorcraft flew again.", *rec.NewsParagraph)
	require.Equal(t, galleryBase+"image/featured/mars2.jpg", *rec.FeaturedImage)
	require.NotNil(t, rec.Facts)
	moons, ok := rec.Facts.Lookup("Moons:")
	require.True(t, ok)
	require.Equal(t, "2 (Phobos & Deimos)", moons)
	require.Contains(t, rec.Facts.HTML, `class="table table-striped"`)

	require.Len(t, rec.Hemispheres, 4)
	for i, h := range rec.Hemispheres {
		require.Equal(t, hemisphereTitles[i], h.Title)
		require.Equal(t, fmt.Sprintf("%s/cache/%d_5.tif", astroBase, i), h.ImgURL)
	}
	require.Equal(t, epoch, rec.LastModified)

	require.Equal(t, 1, site.Opened())
	sess := site.Sessions()[0]
	require.True(t, sess.Closed())
	require.Equal(t, []string{newsURL, galleryURL, resultsURL}, sess.Visits())
}

func TestRunIsIdempotentApartFromTimestamp(t *testing.T) {
	t.Parallel()

	s := New(testConfig(), marsSite(), factsDocuments(), marstest.NewClock(epoch, time.Hour), nil, nil)

	first, err := s.Run(context.Background())
	require.NoError(t, err)
	second, err := s.Run(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(mars.Record{}, "LastModified")); diff != "" {
		t.Fatalf("records differ (-first +second):\n%s", diff)
	}
	require.True(t, second.LastModified.After(first.LastModified))
}

func TestRunLeavesFailedFieldsEmpty(t *testing.T) {
	t.Parallel()

	site := marsSite().
		Page(newsURL, `<html><body>redesigned</body></html>`).
		Page(galleryURL, `<p>no buttons</p>`)
	s := New(testConfig(), site, marstest.Documents{}, marstest.NewClock(epoch, 0), nil, nil)

	rec, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Nil(t, rec.NewsTitle)
	require.Nil(t, rec.NewsParagraph)
	require.Nil(t, rec.FeaturedImage)
	require.Nil(t, rec.Facts)
	require.Len(t, rec.Hemispheres, 4)
	require.Equal(t, epoch, rec.LastModified)
}

func TestRunHemispheresDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Hemispheres.Enabled = false
	site := marsSite()
	s := New(cfg, site, factsDocuments(), marstest.NewClock(epoch, 0), nil, nil)

	rec, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, rec.Hemispheres)
	require.NotContains(t, site.Sessions()[0].Visits(), resultsURL)
}

func TestRunClosesSessionOnFatalError(t *testing.T) {
	t.Parallel()

	site := marsSite()
	delete(site.Pages, galleryURL)
	s := New(testConfig(), site, factsDocuments(), marstest.NewClock(epoch, 0), nil, nil)

	_, err := s.Run(context.Background())
	require.ErrorIs(t, err, marstest.ErrNavigation)
	require.ErrorContains(t, err, FieldFeaturedImage)
	require.True(t, site.Sessions()[0].Closed())
}

func TestRunFailedBackAbortsScrape(t *testing.T) {
	t.Parallel()

	site := marsSite()
	site.FailBack = true
	s := New(testConfig(), site, factsDocuments(), marstest.NewClock(epoch, 0), nil, nil)

	_, err := s.Run(context.Background())
	require.ErrorContains(t, err, FieldHemispheres)
	require.True(t, site.Sessions()[0].Closed())
}

func TestRunPropagatesOpenError(t *testing.T) {
	t.Parallel()

	site := marsSite()
	site.OpenErr = errors.New("chrome not found")
	s := New(testConfig(), site, factsDocuments(), marstest.NewClock(epoch, 0), nil, nil)

	_, err := s.Run(context.Background())
	require.ErrorContains(t, err, "chrome not found")
	require.Empty(t, site.Sessions())
}

type wrapCounter struct{ wrapped int }

func (w *wrapCounter) Wrap(sess mars.Session) mars.Session {
	w.wrapped++
	return sess
}

func TestRunWrapsEverySession(t *testing.T) {
	t.Parallel()

	wrapper := &wrapCounter{}
	s := New(testConfig(), marsSite(), factsDocuments(), marstest.NewClock(epoch, 0), wrapper, nil)
	for i := 0; i < 2; i++ {
		_, err := s.Run(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, 2, wrapper.wrapped)
}

func TestRefreshReplacesStoredRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewRecordStore()
	svc := NewService(
		New(testConfig(), marsSite(), factsDocuments(), marstest.NewClock(epoch, time.Minute), nil, nil),
		store,
		nil,
	)

	_, err := svc.Latest(ctx)
	require.ErrorIs(t, err, mars.ErrNoRecord)

	var last mars.Record
	for i := 0; i < 3; i++ {
		last, err = svc.Refresh(ctx)
		require.NoError(t, err)
	}
	got, err := svc.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, last, got)
	require.Equal(t, epoch.Add(2*time.Minute), got.LastModified)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, testConfig().Validate())

	cfg := testConfig()
	cfg.Facts.URL = ""
	require.ErrorContains(t, cfg.Validate(), "sources.facts.url")

	cfg = testConfig()
	cfg.FeaturedImage.Button = mars.Nth("button", -1)
	require.ErrorContains(t, cfg.Validate(), "sources.featured_image.button")

	cfg = testConfig()
	cfg.Hemispheres.Item = ""
	require.ErrorContains(t, cfg.Validate(), "sources.hemispheres.item_selector")
	cfg.Hemispheres.Enabled = false
	require.NoError(t, cfg.Validate())
}
