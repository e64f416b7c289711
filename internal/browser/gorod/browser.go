// Package gorod implements mars.Browser with go-rod, optionally injecting the
// stealth evasions before every document.
package gorod

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/browser"
	"github.com/JakeFAU/mars-scraper/internal/mars"
)

const defaultClickSettle = 500 * time.Millisecond

// Browser owns one launched browser process; each session is a new page.
type Browser struct {
	cfg      browser.Config
	pacer    *browser.Pacer
	logger   *zap.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// New launches the browser and connects to it.
func New(cfg browser.Config, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pacer, err := browser.NewPacer(cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	l := newLauncher(cfg)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	logger.Info("Browser launched", zap.String("control_url", controlURL), zap.Bool("stealth", cfg.Stealth))

	rb := rod.New().ControlURL(controlURL)
	if err := rb.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	return &Browser{cfg: cfg, pacer: pacer, logger: logger, launcher: l, browser: rb}, nil
}

func newLauncher(cfg browser.Config) *launcher.Launcher {
	l := launcher.New().Headless(cfg.Headless)
	if cfg.ExecPath != "" {
		l = l.Bin(cfg.ExecPath)
	}
	if cfg.Stealth {
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
	}
	return l
}

// Close shuts the browser down and removes its profile directory.
func (b *Browser) Close() error {
	if b == nil || b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.launcher.Cleanup()
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

// Open implements mars.Browser.
func (b *Browser) Open(ctx context.Context) (mars.Session, error) {
	release, err := b.pacer.Acquire(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		release()
		return nil, fmt.Errorf("create page: %w", err)
	}
	s := &session{
		page:    page,
		release: release,
		pacer:   b.pacer,
		timeout: b.cfg.NavTimeout(),
		settle:  b.cfg.ClickSettle,
		logger:  b.logger,
	}
	if s.settle <= 0 {
		s.settle = defaultClickSettle
	}
	if err := b.prepare(page); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (b *Browser) prepare(page *rod.Page) error {
	if b.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			return fmt.Errorf("inject stealth script: %w", err)
		}
	}
	if b.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.cfg.UserAgent}); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
	}
	return nil
}

type session struct {
	page    *rod.Page
	release func()
	pacer   *browser.Pacer
	timeout time.Duration
	settle  time.Duration
	logger  *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// bounded returns the page bound to ctx and d. The stop func must be called.
func (s *session) bounded(ctx context.Context, d time.Duration) (*rod.Page, func()) {
	p := s.page.Context(ctx).Timeout(d)
	return p, func() { p.CancelTimeout() }
}

func (s *session) Visit(ctx context.Context, url string) error {
	if err := s.pacer.Wait(ctx, url); err != nil {
		return err //nolint:wrapcheck
	}
	p, stop := s.bounded(ctx, s.timeout)
	defer stop()
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("visit %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("visit %s: wait load: %w", url, err)
	}
	return nil
}

func (s *session) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	if timeout <= 0 {
		els, err := s.page.Context(ctx).Elements(selector)
		return err == nil && len(els) > 0
	}
	p, stop := s.bounded(ctx, timeout)
	defer stop()
	_, err := p.Element(selector)
	return err == nil
}

func (s *session) ClickNth(ctx context.Context, loc mars.Locator) error {
	p, stop := s.bounded(ctx, s.timeout)
	defer stop()
	els, err := p.Elements(loc.Selector)
	if err != nil {
		return fmt.Errorf("query %s: %w", loc, err)
	}
	if loc.Ordinal < 0 || loc.Ordinal >= len(els) {
		return fmt.Errorf("click %s: %w (found %d)", loc, mars.ErrNoSuchElement, len(els))
	}
	if err := els[loc.Ordinal].Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	if err := sleep(ctx, s.settle); err != nil {
		return err
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("click %s: wait load: %w", loc, err)
	}
	return nil
}

func (s *session) HTML(ctx context.Context) (string, error) {
	p, stop := s.bounded(ctx, s.timeout)
	defer stop()
	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

func (s *session) Back(ctx context.Context) error {
	p, stop := s.bounded(ctx, s.timeout)
	defer stop()
	if err := p.NavigateBack(); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("navigate back: wait load: %w", err)
	}
	return nil
}

func (s *session) Close() error {
	s.closeOnce.Do(func() {
		defer s.release()
		if err := s.page.Close(); err != nil {
			s.logger.Debug("Failed to close page", zap.Error(err))
			s.closeErr = fmt.Errorf("close page: %w", err)
		}
	})
	return s.closeErr
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("settle after click: %w", ctx.Err())
	}
}
