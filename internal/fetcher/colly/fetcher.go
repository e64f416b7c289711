// Package collyfetcher implements mars.DocumentFetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/metrics"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string        `mapstructure:"user_agent"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Fetcher downloads static documents, such as the facts page, without a browser.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := newHTTPTransport()
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(transport)
	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
		logger:        logger,
	}
}

type fetchResult struct {
	body   []byte
	status int
	err    error
}

// FetchDocument GETs url and returns the response body. Non-2xx responses and
// transport failures are errors.
func (f *Fetcher) FetchDocument(ctx context.Context, url string) ([]byte, error) {
	var result fetchResult
	collector, robots := f.buildCollector(&result)
	collector.Context = ctx

	err := f.runCollector(ctx, collector, url, &result)
	if robots != nil {
		if cause := robots.fellBack(); cause != nil {
			f.logger.Warn("robots.txt timed out; fetched as allowed",
				zap.String("url", url),
				zap.Error(cause),
			)
		}
	}
	if err != nil {
		metrics.ObserveFetch(url, "error", 0)
		return nil, err
	}
	metrics.ObserveFetch(url, "success", len(result.body))
	return result.body, nil
}

func (f *Fetcher) buildCollector(result *fetchResult) (*colly.Collector, *robotsFallback) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	timeout := f.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	collector.SetRequestTimeout(timeout)

	var robots *robotsFallback
	if f.cfg.RespectRobots {
		robots = newRobotsFallback(f.transport)
		collector.WithTransport(robots)
	} else {
		collector.WithTransport(f.transport)
	}

	configureCollectorHooks(collector, result)
	return collector, robots
}

func configureCollectorHooks(hooks collectorHooks, result *fetchResult) {
	hooks.OnResponse(func(r *colly.Response) {
		result.status = r.StatusCode
		result.body = append([]byte(nil), r.Body...)
	})
	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.status = r.StatusCode
		}
		result.err = err
	})
}

// runCollector visits url and never returns before the visit does, so the
// hooks are done writing result. The collector's request carries ctx, so a
// cancel aborts the page fetch; a robots.txt fetch in flight is bounded by the
// request timeout instead.
func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, result *fetchResult) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		<-done
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("colly fetch canceled: %w", ctxErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit %s failed: %w", url, err)
		}
		if result.err != nil {
			return fmt.Errorf("colly response %d from %s: %w", result.status, url, result.err)
		}
		if result.status < 200 || result.status > 299 {
			return fmt.Errorf("unexpected status %d from %s", result.status, url)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
}
