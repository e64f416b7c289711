package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

const (
	newsURL     = "https://news.test/"
	galleryURL  = "https://gallery.test/JPL_Space/index.html"
	galleryFull = "https://gallery.test/JPL_Space/index.html#full"
	galleryBase = "https://gallery.test/JPL_Space/"
	factsURL    = "https://facts.test/mars/"
	resultsURL  = "https://astro.test/search/results"
	astroBase   = "https://astro.test"
)

func newsConfig() NewsConfig {
	return NewsConfig{
		URL:    newsURL,
		Slide:  "ul.item_list li.slide",
		Title:  "div.content_title",
		Teaser: "div.article_teaser_body",
		Wait:   time.Second,
	}
}

func featuredConfig() FeaturedImageConfig {
	return FeaturedImageConfig{
		URL:     galleryURL,
		BaseURL: galleryBase,
		Button:  mars.Nth("button", 1),
		Image:   "img.fancybox-image",
	}
}

func hemispheresConfig() HemispheresConfig {
	return HemispheresConfig{
		Enabled:   true,
		URL:       resultsURL,
		BaseURL:   astroBase,
		Item:      "div.item",
		Thumbnail: "img.thumb",
		Image:     mars.Nth("img", 5),
		Title:     "h2.title",
	}
}

func newsPage(title, body string) string {
	return `<html><body><ul class="item_list">
<li class="slide"><div class="content_title"><a href="/n/1">` + title + `</a></div>
<div class="article_teaser_body">` + body + `</div></li>
<li class="slide"><div class="content_title">Older</div><div class="article_teaser_body">Old</div></li>
</ul></body></html>`
}

const galleryPage = `<html><body>
<button class="menu">Menu</button>
<button class="full_image">FULL IMAGE</button>
</body></html>`

func galleryFullPage(src string) string {
	return `<html><body>
<button class="menu">Menu</button>
<button class="full_image">FULL IMAGE</button>
<div class="fancybox-wrap"><img class="fancybox-image" src="` + src + `"></div>
</body></html>`
}

func resultsPage(n int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="collapsible results">`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<div class="item"><a class="product-item" href="/detail/%d"><img class="thumb" src="/thumb/%d.png"></a></div>`, i, i)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func detailPage(title string, images int) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	for i := 0; i < images; i++ {
		fmt.Fprintf(&b, `<img src="/cache/images/%s_%d.tif">`, strings.ReplaceAll(title, " ", "_"), i)
	}
	if title != "" {
		fmt.Fprintf(&b, `<h2 class="title">%s</h2>`, title)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func detailURL(i int) string {
	return fmt.Sprintf("%s/detail/%d", astroBase, i)
}
