// Package chrome implements mars.Browser on headless Chrome via chromedp.
package chrome

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/browser"
	"github.com/JakeFAU/mars-scraper/internal/mars"
)

const defaultClickSettle = 500 * time.Millisecond

// Browser owns one Chrome process; each session is a fresh tab.
type Browser struct {
	cfg           browser.Config
	pacer         *browser.Pacer
	logger        *zap.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// exec runs chromedp actions; tests replace it to observe contexts.
	exec func(ctx context.Context, actions ...chromedp.Action) error
}

// New launches Chrome and verifies it answers before returning.
func New(cfg browser.Config, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pacer, err := browser.NewPacer(cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(logger.Sugar().Errorf),
	)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	logger.Info("Chrome launched", zap.Bool("headless", cfg.Headless))

	return &Browser{
		cfg:           cfg,
		pacer:         pacer,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		exec:          chromedp.Run,
	}, nil
}

func allocatorOptions(cfg browser.Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}

// Close tears down the browser and allocator contexts.
func (b *Browser) Close() error {
	if b == nil {
		return nil
	}
	b.browserCancel()
	b.allocCancel()
	return nil
}

// Open implements mars.Browser.
func (b *Browser) Open(ctx context.Context) (mars.Session, error) {
	release, err := b.pacer.Acquire(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	s := &session{
		tabCtx:  tabCtx,
		cancel:  tabCancel,
		release: release,
		pacer:   b.pacer,
		exec:    b.exec,
		timeout: b.cfg.NavTimeout(),
		settle:  b.cfg.ClickSettle,
	}
	if s.settle <= 0 {
		s.settle = defaultClickSettle
	}
	if s.exec == nil {
		s.exec = chromedp.Run
	}
	// The first Run creates the tab and starts its event loop on the context it
	// is given, so it must be tabCtx itself and not a per-action child.
	stop := browser.ForwardCancel(ctx, tabCancel)
	err = s.exec(tabCtx)
	stop()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("allocate tab: %w", err)
	}
	if err := s.run(ctx, s.timeout, b.setupAction()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return s, nil
}

func (b *Browser) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if b.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

type session struct {
	tabCtx  context.Context
	cancel  context.CancelFunc
	release func()
	pacer   *browser.Pacer
	exec    func(ctx context.Context, actions ...chromedp.Action) error
	timeout time.Duration
	settle  time.Duration

	closeOnce sync.Once
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (s *session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	taskCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := browser.ForwardCancel(ctx, cancel)
	defer stop()
	if err := s.exec(taskCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func (s *session) Visit(ctx context.Context, url string) error {
	if err := s.pacer.Wait(ctx, url); err != nil {
		return err //nolint:wrapcheck
	}
	if err := s.run(ctx, s.timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("visit %s: %w", url, err)
	}
	return nil
}

func (s *session) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	if timeout <= 0 {
		nodes, err := s.nodes(ctx, selector)
		return err == nil && len(nodes) > 0
	}
	return s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)) == nil
}

func (s *session) nodes(ctx context.Context, selector string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, s.timeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	return nodes, err
}

func (s *session) ClickNth(ctx context.Context, loc mars.Locator) error {
	nodes, err := s.nodes(ctx, loc.Selector)
	if err != nil {
		return fmt.Errorf("query %s: %w", loc, err)
	}
	if loc.Ordinal < 0 || loc.Ordinal >= len(nodes) {
		return fmt.Errorf("click %s: %w (found %d)", loc, mars.ErrNoSuchElement, len(nodes))
	}
	if err := s.run(ctx, s.timeout,
		chromedp.MouseClickNode(nodes[loc.Ordinal]),
		chromedp.Sleep(s.settle),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	return nil
}

func (s *session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

func (s *session) Back(ctx context.Context) error {
	if err := s.run(ctx, s.timeout,
		chromedp.NavigateBack(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	return nil
}

func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.release()
	})
	return nil
}
