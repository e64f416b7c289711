package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/mars"
	"github.com/JakeFAU/mars-scraper/internal/metrics"
)

// DefaultRequestTimeout bounds a request when Options leaves it unset. A scrape
// visits several slow third-party pages, so it is generous.
const DefaultRequestTimeout = 5 * time.Minute

const readyTimeout = 3 * time.Second

// RecordService refreshes and reads the stored record.
type RecordService interface {
	Refresh(ctx context.Context) (mars.Record, error)
	Latest(ctx context.Context) (mars.Record, error)
}

// Options tunes the server.
type Options struct {
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the record service.
type Server struct {
	router  chi.Router
	service RecordService
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(service RecordService, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	s := &Server{
		service: service,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(opts.RequestTimeout))

	r.Get("/", s.index)
	r.Get("/scrape", s.scrape)
	r.Get("/api/mars", s.record)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// index renders the latest record, or the placeholder page when none is stored.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	var current *mars.Record
	rec, err := s.service.Latest(r.Context())
	switch {
	case err == nil:
		current = &rec
	case errors.Is(err, mars.ErrNoRecord):
	default:
		s.logger.Error("load record failed", zap.Error(err))
		http.Error(w, "failed to load record", http.StatusInternalServerError)
		return
	}
	body, err := renderIndex(current)
	if err != nil {
		s.logger.Error("render index failed", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("index write failed", zap.Error(err))
	}
}

// scrape refreshes the stored record synchronously and redirects to the index.
// On failure the stored record is left untouched.
func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Refresh(r.Context())
	if err != nil {
		s.logger.Error("scrape failed", zap.Error(err), zap.String("request_id", requestIDFrom(r.Context())))
		http.Error(w, "scrape failed", http.StatusInternalServerError)
		return
	}
	s.logger.Info("scrape completed", zap.Time("last_modified", rec.LastModified))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) record(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Latest(r.Context())
	if errors.Is(err, mars.ErrNoRecord) {
		writeError(w, http.StatusNotFound, "no record stored")
		return
	}
	if err != nil {
		s.logger.Error("load record failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports ready once the record store answers. An empty store is ready.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if _, err := s.service.Latest(ctx); err != nil && !errors.Is(err, mars.ErrNoRecord) {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
