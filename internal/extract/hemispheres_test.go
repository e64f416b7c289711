package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/mars-scraper/internal/mars"
	"github.com/JakeFAU/mars-scraper/internal/mars/marstest"
)

func hemisphereSite(details ...string) *marstest.Site {
	site := marstest.NewSite().Page(resultsURL, resultsPage(len(details)))
	for i, html := range details {
		site.Page(detailURL(i), html).Link(resultsURL, mars.Nth("img.thumb", i), detailURL(i))
	}
	return site
}

func TestHemispheresExtractorCollectsEveryItem(t *testing.T) {
	t.Parallel()

	site := hemisphereSite(
		detailPage("Cerberus Hemisphere Enhanced", 6),
		detailPage("Schiaparelli Hemisphere Enhanced", 7),
	)
	sess, err := site.Open(context.Background())
	require.NoError(t, err)

	res, err := NewHemispheresExtractor(hemispheresConfig(), nil).Extract(context.Background(), sess)
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Equal(t, []mars.Hemisphere{
		{
			Title:  "Cerberus Hemisphere Enhanced",
			ImgURL: astroBase + "/cache/images/Cerberus_Hemisphere_Enhanced_5.tif",
		},
		{
			Title:  "Schiaparelli Hemisphere Enhanced",
			ImgURL: astroBase + "/cache/images/Schiaparelli_Hemisphere_Enhanced_5.tif",
		},
	}, res.Value)
	require.Equal(t, 2, site.Sessions()[0].Backs())
}

func TestHemispheresExtractorSkipsBadItems(t *testing.T) {
	t.Parallel()

	site := hemisphereSite(
		detailPage("Cerberus", 5), // too few images
		detailPage("Syrtis Major", 6),
		detailPage("", 6), // no title
		detailPage("Valles Marineris", 6),
	)
	sess, err := site.Open(context.Background())
	require.NoError(t, err)

	res, err := NewHemispheresExtractor(hemispheresConfig(), nil).Extract(context.Background(), sess)
	require.NoError(t, err)
	require.True(t, res.OK())
	require.LessOrEqual(t, len(res.Value), 4)
	require.Len(t, res.Value, 2)
	require.Equal(t, "Syrtis Major", res.Value[0].Title)
	require.Equal(t, "Valles Marineris", res.Value[1].Title)
}

func TestHemispheresExtractorMissingThumbnailSkipsWithoutBack(t *testing.T) {
	t.Parallel()

	// Two items, but only one thumbnail image on the results page.
	site := marstest.NewSite().
		Page(resultsURL, `<div class="item"><img class="thumb"></div><div class="item"></div>`).
		Page(detailURL(0), detailPage("Only", 6)).
		Link(resultsURL, mars.Nth("img.thumb", 0), detailURL(0))
	sess, err := site.Open(context.Background())
	require.NoError(t, err)

	res, err := NewHemispheresExtractor(hemispheresConfig(), nil).Extract(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, res.Value, 1)
	require.Equal(t, 1, site.Sessions()[0].Backs())
}

func TestHemispheresExtractorNoItems(t *testing.T) {
	t.Parallel()

	site := marstest.NewSite().Page(resultsURL, `<html><body>empty</body></html>`)
	sess, err := site.Open(context.Background())
	require.NoError(t, err)

	res, err := NewHemispheresExtractor(hemispheresConfig(), nil).Extract(context.Background(), sess)
	require.NoError(t, err)
	require.ErrorIs(t, res.Err, ErrMismatch)
}

func TestHemispheresExtractorFailedBackIsFatal(t *testing.T) {
	t.Parallel()

	site := hemisphereSite(detailPage("Cerberus", 6))
	site.FailBack = true
	sess, err := site.Open(context.Background())
	require.NoError(t, err)

	_, err = NewHemispheresExtractor(hemispheresConfig(), nil).Extract(context.Background(), sess)
	require.ErrorIs(t, err, marstest.ErrNavigation)
}

func TestHemispheresExtractorReloadsResultsAfterFailedClick(t *testing.T) {
	t.Parallel()

	site := hemisphereSite(
		detailPage("Cerberus", 6),
		detailPage("Schiaparelli", 6),
	)
	// The first click lands on the detail page but the driver reports a load timeout.
	site.FailClickAfterNavigating(resultsURL, mars.Nth("img.thumb", 0), errors.New("wait ready: deadline exceeded"))
	sess, err := site.Open(context.Background())
	require.NoError(t, err)

	res, err := NewHemispheresExtractor(hemispheresConfig(), nil).Extract(context.Background(), sess)
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Len(t, res.Value, 1)
	require.Equal(t, "Schiaparelli", res.Value[0].Title)

	recorded := site.Sessions()[0]
	require.Equal(t, []string{resultsURL, resultsURL}, recorded.Visits())
	require.Equal(t, 1, recorded.Backs())
}
