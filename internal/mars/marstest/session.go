// Package marstest provides in-memory fakes of the mars ports for tests.
package marstest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

// ErrNavigation is returned by Site sessions for URLs that are not served.
var ErrNavigation = errors.New("navigation failed")

// Site is a scripted set of pages. Clicking an element listed in Links moves the
// session to the target URL; clicking any other existing element is a no-op.
type Site struct {
	mu sync.Mutex
	// Pages maps URL to document HTML.
	Pages map[string]string
	// Links maps "pageURL|selector[ordinal]" to the URL reached by that click.
	Links map[string]string
	// FailBack makes every Back call fail.
	FailBack bool
	// OpenErr is returned by Open when set.
	OpenErr error
	// clickErrs maps a link key to the error ClickNth returns after following it.
	clickErrs map[string]error

	opened   int
	sessions []*Session
}

// NewSite returns an empty Site.
func NewSite() *Site {
	return &Site{Pages: map[string]string{}, Links: map[string]string{}}
}

// Page registers html under url and returns the site for chaining.
func (s *Site) Page(url, html string) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pages[url] = html
	return s
}

// Link registers a click transition.
func (s *Site) Link(fromURL string, loc mars.Locator, toURL string) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Links[linkKey(fromURL, loc)] = toURL
	return s
}

// FailClickAfterNavigating makes the click at loc on fromURL follow its link
// and then report err, the way a driver does when the page load after a click
// times out.
func (s *Site) FailClickAfterNavigating(fromURL string, loc mars.Locator, err error) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clickErrs == nil {
		s.clickErrs = map[string]error{}
	}
	s.clickErrs[linkKey(fromURL, loc)] = err
	return s
}

func (s *Site) clickErr(fromURL string, loc mars.Locator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clickErrs[linkKey(fromURL, loc)]
}

// Open implements mars.Browser.
func (s *Site) Open(_ context.Context) (mars.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	s.opened++
	sess := &Session{site: s}
	s.sessions = append(s.sessions, sess)
	return sess, nil
}

// Opened returns how many sessions were opened.
func (s *Site) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Sessions returns every session opened so far.
func (s *Site) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Session(nil), s.sessions...)
}

func (s *Site) page(url string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	html, ok := s.Pages[url]
	return html, ok
}

func (s *Site) link(fromURL string, loc mars.Locator) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	to, ok := s.Links[linkKey(fromURL, loc)]
	return to, ok
}

func linkKey(url string, loc mars.Locator) string {
	return url + "|" + loc.String()
}

// Session is a mars.Session over a Site.
type Session struct {
	site    *Site
	history []string
	closed  bool
	visits  []string
	backs   int
}

// Visit implements mars.Session.
func (s *Session) Visit(_ context.Context, url string) error {
	if s.closed {
		return errors.New("session closed")
	}
	if _, ok := s.site.page(url); !ok {
		return fmt.Errorf("%w: %s", ErrNavigation, url)
	}
	s.visits = append(s.visits, url)
	s.history = append(s.history, url)
	return nil
}

// WaitFor implements mars.Session.
func (s *Session) WaitFor(_ context.Context, selector string, _ time.Duration) bool {
	doc, err := s.document()
	if err != nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}

// ClickNth implements mars.Session.
func (s *Session) ClickNth(_ context.Context, loc mars.Locator) error {
	doc, err := s.document()
	if err != nil {
		return err
	}
	if doc.Find(loc.Selector).Length() <= loc.Ordinal {
		return fmt.Errorf("click %s: %w", loc, mars.ErrNoSuchElement)
	}
	from := s.current()
	if to, ok := s.site.link(from, loc); ok {
		s.history = append(s.history, to)
	}
	if err := s.site.clickErr(from, loc); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	return nil
}

// HTML implements mars.Session.
func (s *Session) HTML(_ context.Context) (string, error) {
	if s.closed {
		return "", errors.New("session closed")
	}
	html, ok := s.site.page(s.current())
	if !ok {
		return "", fmt.Errorf("%w: no page loaded", ErrNavigation)
	}
	return html, nil
}

// Back implements mars.Session.
func (s *Session) Back(_ context.Context) error {
	if s.site.FailBack {
		return fmt.Errorf("%w: back", ErrNavigation)
	}
	if len(s.history) < 2 {
		return fmt.Errorf("%w: no history", ErrNavigation)
	}
	s.history = s.history[:len(s.history)-1]
	s.backs++
	return nil
}

// Close implements mars.Session.
func (s *Session) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	return s.closed
}

// Visits lists the URLs passed to Visit, in order.
func (s *Session) Visits() []string {
	return append([]string(nil), s.visits...)
}

// Backs counts successful Back calls.
func (s *Session) Backs() int {
	return s.backs
}

func (s *Session) current() string {
	if len(s.history) == 0 {
		return ""
	}
	return s.history[len(s.history)-1]
}

func (s *Session) document() (*goquery.Document, error) {
	html, err := s.HTML(context.Background())
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse fake page: %w", err)
	}
	return doc, nil
}

// Documents serves fixed bodies by URL; it implements mars.DocumentFetcher.
type Documents map[string][]byte

// FetchDocument implements mars.DocumentFetcher.
func (d Documents) FetchDocument(_ context.Context, url string) ([]byte, error) {
	body, ok := d[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNavigation, url)
	}
	return body, nil
}

// Clock is a fixed or stepping clock.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewClock returns a clock starting at now that advances by step on every call.
func NewClock(now time.Time, step time.Duration) *Clock {
	return &Clock{now: now, step: step}
}

// Now implements mars.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}
