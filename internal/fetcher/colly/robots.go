package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
)

const allowAllRobots = "User-agent: *\nAllow: /"

// robotsFallback lets a slow robots.txt degrade to allow-all instead of failing
// the document fetch. Only timeouts on the robots.txt path are absorbed; every
// other request and error passes through untouched.
type robotsFallback struct {
	base http.RoundTripper

	mu    sync.Mutex
	cause error
}

func newRobotsFallback(base http.RoundTripper) *robotsFallback {
	return &robotsFallback{base: base}
}

func (t *robotsFallback) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil || req.URL == nil {
		return nil, errors.New("robots fallback: nil request")
	}
	resp, err := t.base.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	if !strings.EqualFold(req.URL.Path, "/robots.txt") || !isTimeout(err) {
		return nil, fmt.Errorf("roundtrip %s: %w", req.URL.Redacted(), err)
	}
	t.mu.Lock()
	if t.cause == nil {
		t.cause = err
	}
	t.mu.Unlock()
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        "200 OK",
		Body:          io.NopCloser(strings.NewReader(allowAllRobots)),
		ContentLength: int64(len(allowAllRobots)),
		Header:        http.Header{"Content-Type": []string{"text/plain"}},
		Request:       req,
	}, nil
}

// fellBack returns the timeout that forced the allow-all policy, if any.
func (t *robotsFallback) fellBack() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cause
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "tls: handshake timeout")
}
