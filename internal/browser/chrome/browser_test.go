package chrome

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/browser"
	"github.com/JakeFAU/mars-scraper/internal/mars"
)

func TestAllocatorOptionsIncludeOverrides(t *testing.T) {
	t.Parallel()

	base := len(chromedp.DefaultExecAllocatorOptions)
	plain := allocatorOptions(browser.Config{Headless: true})
	require.Len(t, plain, base+4)

	full := allocatorOptions(browser.Config{Headless: true, ExecPath: "/usr/bin/chromium", UserAgent: "mars/1.0"})
	require.Len(t, full, base+6)
}

func TestNewRejectsInvalidPacing(t *testing.T) {
	t.Parallel()

	_, err := New(browser.Config{MaxSessions: -1}, zap.NewNop())
	require.Error(t, err)
}

func TestCloseNilBrowser(t *testing.T) {
	t.Parallel()

	var b *Browser
	require.NoError(t, b.Close())
}

// recordingExec stands in for chromedp.Run and keeps every context it was
// handed, in call order.
type recordingExec struct {
	mu   sync.Mutex
	ctxs []context.Context
}

func (r *recordingExec) run(ctx context.Context, _ ...chromedp.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctxs = append(r.ctxs, ctx)
	return nil
}

func (r *recordingExec) calls() []context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]context.Context(nil), r.ctxs...)
}

func TestOpenAllocatesTabOnSessionLifetimeContext(t *testing.T) {
	t.Parallel()

	rec := &recordingExec{}
	b := &Browser{
		cfg:        browser.Config{NavigationTimeout: time.Second},
		logger:     zap.NewNop(),
		browserCtx: context.Background(),
		exec:       rec.run,
	}
	ctx := context.Background()
	sess, err := b.Open(ctx)
	require.NoError(t, err)

	require.NoError(t, sess.Visit(ctx, "https://mars.nasa.gov/news/"))
	_, err = sess.HTML(ctx)
	require.NoError(t, err)

	calls := rec.calls()
	require.Len(t, calls, 4, "allocate, setup, visit, html")

	// The tab's event loop lives on the first context; it must outlive Open
	// and every later action.
	alloc := calls[0]
	_, hasDeadline := alloc.Deadline()
	require.False(t, hasDeadline)
	require.NoError(t, alloc.Err())
	for _, c := range calls[1:] {
		_, hasDeadline := c.Deadline()
		require.True(t, hasDeadline)
		require.Error(t, c.Err(), "per-action contexts end with their action")
	}

	require.NoError(t, sess.Close())
	require.ErrorIs(t, alloc.Err(), context.Canceled)
}

func TestOpenFailsWhenTabCannotBeAllocated(t *testing.T) {
	t.Parallel()

	pacer, err := browser.NewPacer(browser.Config{MaxSessions: 1})
	require.NoError(t, err)
	b := &Browser{
		cfg:        browser.Config{NavigationTimeout: time.Second},
		pacer:      pacer,
		logger:     zap.NewNop(),
		browserCtx: context.Background(),
		exec: func(context.Context, ...chromedp.Action) error {
			return errors.New("target crashed")
		},
	}
	_, err = b.Open(context.Background())
	require.ErrorContains(t, err, "allocate tab")

	// The session slot is released on failure.
	release, err := pacer.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func findChrome(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome binary on PATH")
	return ""
}

func TestSessionAgainstLocalSite(t *testing.T) {
	chrome := findChrome(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/results", func(w http.ResponseWriter, _ *http.Request) {
		var b strings.Builder
		b.WriteString(`<html><body>`)
		for i := 0; i < 2; i++ {
			fmt.Fprintf(&b, `<div class="item"><a href="/detail/%d"><img class="thumb" src="data:," width="20" height="20"></a></div>`, i)
		}
		b.WriteString(`</body></html>`)
		_, _ = w.Write([]byte(b.String()))
	})
	mux.HandleFunc("/detail/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `<html><body><h2 class="title">%s</h2></body></html>`, r.URL.Path)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b, err := New(browser.Config{ExecPath: chrome, Headless: true, NavigationTimeout: 20 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	defer func() { require.NoError(t, b.Close()) }()

	ctx := context.Background()
	sess, err := b.Open(ctx)
	require.NoError(t, err)
	defer func() { require.NoError(t, sess.Close()) }()

	require.NoError(t, sess.Visit(ctx, srv.URL+"/results"))
	require.True(t, sess.WaitFor(ctx, "div.item", time.Second))
	require.False(t, sess.WaitFor(ctx, "div.missing", 0))

	err = sess.ClickNth(ctx, mars.Nth("img.thumb", 5))
	require.ErrorIs(t, err, mars.ErrNoSuchElement)

	require.NoError(t, sess.ClickNth(ctx, mars.Nth("img.thumb", 1)))
	html, err := sess.HTML(ctx)
	require.NoError(t, err)
	require.Contains(t, html, "/detail/1")

	require.NoError(t, sess.Back(ctx))
	html, err = sess.HTML(ctx)
	require.NoError(t, err)
	require.Contains(t, html, `class="item"`)
}

func TestSessionVisitThenHTML(t *testing.T) {
	chrome := findChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><ul class="item_list"><li class="slide">Rover</li></ul></body></html>`))
	}))
	defer srv.Close()

	b, err := New(browser.Config{ExecPath: chrome, Headless: true, NavigationTimeout: 20 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	defer func() { require.NoError(t, b.Close()) }()

	ctx := context.Background()
	sess, err := b.Open(ctx)
	require.NoError(t, err)
	defer func() { require.NoError(t, sess.Close()) }()

	require.NoError(t, sess.Visit(ctx, srv.URL))
	html, err := sess.HTML(ctx)
	require.NoError(t, err)
	require.Contains(t, html, "Rover")
}
