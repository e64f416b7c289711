// Package browser holds the settings and pacing shared by the headless browser
// drivers in its subpackages.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Driver names accepted in Config.Driver.
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// Config controls how browser sessions are launched and paced.
type Config struct {
	Driver            string        `mapstructure:"driver"`
	ExecPath          string        `mapstructure:"exec_path"`
	Headless          bool          `mapstructure:"headless"`
	Stealth           bool          `mapstructure:"stealth"`
	UserAgent         string        `mapstructure:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"nav_timeout"`
	// ClickSettle is how long a session waits after a click before reading the page.
	ClickSettle time.Duration `mapstructure:"click_settle"`
	// DomainQPS caps navigations per host; zero disables pacing.
	DomainQPS float64 `mapstructure:"domain_qps"`
	// MaxSessions caps concurrently open sessions; zero means unlimited.
	MaxSessions int `mapstructure:"max_sessions"`
}

// DefaultNavigationTimeout applies when Config.NavigationTimeout is unset.
const DefaultNavigationTimeout = 45 * time.Second

// NavTimeout returns the configured navigation timeout or the default.
func (c Config) NavTimeout() time.Duration {
	if c.NavigationTimeout > 0 {
		return c.NavigationTimeout
	}
	return DefaultNavigationTimeout
}

// Pacer bounds open sessions and spaces navigations to the same host.
type Pacer struct {
	qps      float64
	sem      chan struct{}
	limiters sync.Map
}

// NewPacer builds a Pacer from the config.
func NewPacer(cfg Config) (*Pacer, error) {
	if cfg.MaxSessions < 0 {
		return nil, fmt.Errorf("browser.max_sessions must be >= 0")
	}
	if cfg.DomainQPS < 0 {
		return nil, fmt.Errorf("browser.domain_qps must be >= 0")
	}
	p := &Pacer{qps: cfg.DomainQPS}
	if cfg.MaxSessions > 0 {
		p.sem = make(chan struct{}, cfg.MaxSessions)
	}
	return p, nil
}

// Acquire reserves a session slot. The returned release func is idempotent.
func (p *Pacer) Acquire(ctx context.Context) (func(), error) {
	if p == nil || p.sem == nil {
		return func() {}, nil
	}
	select {
	case p.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-p.sem }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire browser session: %w", ctx.Err())
	}
}

// Wait blocks until a navigation to rawURL fits the host's rate limit.
func (p *Pacer) Wait(ctx context.Context, rawURL string) error {
	if p == nil || p.qps <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse navigation url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := p.limiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(p.qps), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

// ForwardCancel calls cancel when parent is done. The returned func stops
// forwarding and must be called once the guarded work finishes.
func ForwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
