// Package httpadapter exposes the dashboard JSON API plus health, readiness,
// and metrics endpoints.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/covid-data-service/internal/domain"
)

// DatasetProvider is the cache layer as seen by the API: it hands out the
// current bundle and supports forced refreshes.
type DatasetProvider interface {
	Get(ctx context.Context) (*domain.DatasetBundle, error)
	Refresh(ctx context.Context) (*domain.DatasetBundle, error)
	CheckReadiness(ctx context.Context) error
}

// Server serves the dashboard API.
type Server struct {
	httpServer *http.Server
	provider   DatasetProvider
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all dashboard routes mounted.
func NewServer(addr string, provider DatasetProvider, logger *slog.Logger) *Server {
	s := &Server{
		provider: provider,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/countries", s.handleCountries)
		r.Get("/countries/{country}", s.handleCountry)
		r.Get("/global", s.handleGlobal)
		r.Get("/map", s.handleMap)
		r.Get("/top", s.handleTop)
		r.Get("/compare", s.handleCompare)
		r.Post("/refresh", s.handleRefresh)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.provider.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

// writeError maps the pipeline's error taxonomy onto HTTP statuses so the
// presentation layer can pattern-match on kind instead of message text.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, kind := http.StatusInternalServerError, "internal"

	var fetchErr *domain.FetchError
	var schemaErr *domain.SchemaError
	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		status, kind = http.StatusBadRequest, "invalid_range"
	case errors.As(err, &fetchErr):
		status, kind = http.StatusBadGateway, "fetch_error"
	case errors.As(err, &schemaErr):
		status, kind = http.StatusBadGateway, "schema_error"
	case errors.Is(err, domain.ErrEmptyDataset):
		status, kind = http.StatusBadGateway, "empty_dataset"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "kind", kind, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": kind, "detail": err.Error()})
}

func writeBadRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "detail": detail})
}
