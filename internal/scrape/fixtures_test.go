package scrape

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/mars-scraper/internal/extract"
	"github.com/JakeFAU/mars-scraper/internal/mars"
	"github.com/JakeFAU/mars-scraper/internal/mars/marstest"
)

const (
	newsURL     = "https://news.test/"
	galleryURL  = "https://gallery.test/space/index.html"
	galleryFull = "https://gallery.test/space/index.html#full"
	galleryBase = "https://gallery.test/space/"
	factsURL    = "https://facts.test/mars/"
	resultsURL  = "https://astro.test/search/results"
	astroBase   = "https://astro.test"
)

var hemisphereTitles = []string{
	"Cerberus Hemisphere Enhanced",
	"Schiaparelli Hemisphere Enhanced",
	"Syrtis Major Hemisphere Enhanced",
	"Valles Marineris Hemisphere Enhanced",
}

func testConfig() Config {
	return Config{
		News: extract.NewsConfig{
			URL:    newsURL,
			Slide:  "ul.item_list li.slide",
			Title:  "div.content_title",
			Teaser: "div.article_teaser_body",
		},
		FeaturedImage: extract.FeaturedImageConfig{
			URL:     galleryURL,
			BaseURL: galleryBase,
			Button:  mars.Nth("button", 1),
			Image:   "img.fancybox-image",
		},
		Facts: extract.FactsConfig{URL: factsURL},
		Hemispheres: extract.HemispheresConfig{
			Enabled:   true,
			URL:       resultsURL,
			BaseURL:   astroBase,
			Item:      "div.item",
			Thumbnail: "img.thumb",
			Image:     mars.Nth("img", 5),
			Title:     "h2.title",
		},
	}
}

// marsSite serves every source page a complete scrape touches.
func marsSite() *marstest.Site {
	site := marstest.NewSite().
		Page(newsURL, `<ul class="item_list"><li class="slide">
<div class="content_title">NASA's Mars Helicopter Completes Flight</div>
<div class="article_teaser_body">The rotorcraft flew again.</div></li></ul>`).
		Page(galleryURL, `<button>Menu</button><button>FULL IMAGE</button>`).
		Page(galleryFull, `<button>Menu</button><button>FULL IMAGE</button>
<img class="fancybox-image" src="image/featured/mars2.jpg">`).
		Link(galleryURL, mars.Nth("button", 1), galleryFull)

	var results strings.Builder
	for i := range hemisphereTitles {
		fmt.Fprintf(&results, `<div class="item"><img class="thumb" src="/thumb/%d.png"></div>`, i)
	}
	site.Page(resultsURL, results.String())

	for i, title := range hemisphereTitles {
		detail := fmt.Sprintf("%s/detail/%d", astroBase, i)
		var page strings.Builder
		for j := 0; j < 6; j++ {
			fmt.Fprintf(&page, `<img src="/cache/%d_%d.tif">`, i, j)
		}
		fmt.Fprintf(&page, `<h2 class="title">%s</h2>`, title)
		site.Page(detail, page.String()).Link(resultsURL, mars.Nth("img.thumb", i), detail)
	}
	return site
}

func factsDocuments() marstest.Documents {
	return marstest.Documents{factsURL: []byte(`<table>
<tr><td>Equatorial Diameter:</td><td>6,792 km</td></tr>
<tr><td>Polar Diameter:</td><td>6,752 km</td></tr>
<tr><td>Moons:</td><td>2 (Phobos &amp; Deimos)</td></tr>
</table>`)}
}
