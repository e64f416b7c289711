// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapesTotal               *prometheus.CounterVec
	scrapeDurationSeconds      prometheus.Histogram
	fieldExtractionsTotal      *prometheus.CounterVec
	pageFetchesTotal           *prometheus.CounterVec
	pageBytesTotal             *prometheus.CounterVec
	snapshotsTotal             *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times; the Observe helpers call it
// on first use.
func Init() {
	once.Do(func() {
		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mars_scrapes_total",
				Help: "Total number of scrape runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scrapeDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mars_scrape_duration_seconds",
				Help:    "Histogram of full scrape durations.",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
		)

		fieldExtractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mars_field_extractions_total",
				Help: "Total number of field extractions, labeled by field and outcome.",
			},
			[]string{"field", "outcome"},
		)

		pageFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mars_page_fetches_total",
				Help: "Total number of plain HTTP document fetches, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		pageBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mars_page_bytes_total",
				Help: "Total number of bytes fetched over plain HTTP, labeled by site.",
			},
			[]string{"site"},
		)

		snapshotsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mars_snapshots_total",
				Help: "Total number of archived page snapshots, labeled by status.",
			},
			[]string{"status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScrape records one finished scrape run.
func ObserveScrape(outcome string, duration time.Duration) {
	Init()
	scrapesTotal.WithLabelValues(outcome).Inc()
	scrapeDurationSeconds.Observe(duration.Seconds())
}

// ObserveField records the outcome of a single field extraction.
func ObserveField(field, outcome string) {
	Init()
	fieldExtractionsTotal.WithLabelValues(field, outcome).Inc()
}

// ObserveFetch increments the document fetch metrics.
func ObserveFetch(site string, status string, bytesFetched int) {
	Init()
	sanitizedSite := SanitizeSite(site)
	pageFetchesTotal.WithLabelValues(sanitizedSite, status).Inc()
	if bytesFetched > 0 {
		pageBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveSnapshot increments the snapshot counter for the given status.
func ObserveSnapshot(status string) {
	Init()
	snapshotsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
