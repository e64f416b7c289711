package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://space-facts.com/mars/", "space-facts.com"},
		{"standard https", "https://Mars.NASA.gov/news/", "mars.nasa.gov"},
		{"no scheme", "astrogeology.usgs.gov/search", "astrogeology.usgs.gov"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := scrapesTotal
	Init()

	if scrapesTotal == nil || fieldExtractionsTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
	if scrapesTotal != first {
		t.Fatal("Init() replaced collectors on second call")
	}
}

func TestObserveScrapeAndField(t *testing.T) {
	before := testutil.ToFloat64(scrapesTotalFor("test_outcome"))
	ObserveScrape("test_outcome", 3*time.Second)
	if got := testutil.ToFloat64(scrapesTotalFor("test_outcome")); got != before+1 {
		t.Errorf("Expected scrapes counter to grow by 1, got %f -> %f", before, got)
	}

	ObserveField("test_field", "missing")
	ObserveField("test_field", "missing")
	if got := testutil.ToFloat64(fieldExtractionsTotal.WithLabelValues("test_field", "missing")); got != 2 {
		t.Errorf("Expected field counter to be 2, got %f", got)
	}
}

func TestObserveFetchSkipsZeroBytes(t *testing.T) {
	ObserveFetch("https://fetch-zero.test/page", "error", 0)
	ObserveFetch("https://fetch-zero.test/page", "success", 512)

	if got := testutil.ToFloat64(pageFetchesTotal.WithLabelValues("fetch-zero.test", "error")); got != 1 {
		t.Errorf("Expected one failed fetch, got %f", got)
	}
	if got := testutil.ToFloat64(pageBytesTotal.WithLabelValues("fetch-zero.test")); got != 512 {
		t.Errorf("Expected 512 bytes, got %f", got)
	}
}

func scrapesTotalFor(outcome string) prometheus.Counter {
	Init()
	return scrapesTotal.WithLabelValues(outcome)
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://mars.nasa.gov", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
