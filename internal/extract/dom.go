package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

// snapshot reads the session's current document and parses it.
func snapshot(ctx context.Context, s mars.Session) (*goquery.Document, error) {
	html, err := s.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	return doc, nil
}

// locate resolves loc against root. The selection is empty when nothing matches.
func locate(root *goquery.Selection, loc mars.Locator) *goquery.Selection {
	return root.Find(loc.Selector).Eq(loc.Ordinal)
}

// firstText returns the trimmed text of the first selector match under root.
func firstText(root *goquery.Selection, selector string) (string, bool) {
	sel := root.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.Text()), true
}

// attr returns a non-empty attribute value.
func attr(sel *goquery.Selection, name string) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}
	v, ok := sel.Attr(name)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// absoluteURL resolves ref against base.
func absoluteURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse image url %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

// pause sleeps for d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("settle wait canceled: %w", ctx.Err())
	}
}
