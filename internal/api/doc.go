// Package api hosts the HTTP server, middleware, and handlers for the Mars
// scraper. Notable routes:
//   - GET / renders the latest stored record.
//   - GET /scrape refreshes the record and redirects to /.
//   - GET /api/mars returns the latest record as JSON.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
