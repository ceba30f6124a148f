// Package http exposes the web tools as a JSON API together with health,
// readiness and Prometheus endpoints.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/webtools-service/internal/domain"
	"github.com/couchcryptid/webtools-service/internal/lookup"
	"github.com/couchcryptid/webtools-service/internal/observability"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// VINService is the lookup surface used by the VIN routes.
type VINService interface {
	Lookup(ctx context.Context, vin string) (domain.LookupResult, error)
	History(ctx context.Context) []domain.HistoryItem
	RemoveHistory(ctx context.Context, id string)
	ClearHistory(ctx context.Context)
	CacheStats() lookup.CacheStats
	ClearCache(ctx context.Context)
}

// Server serves the API plus /healthz, /readyz and /metrics.
type Server struct {
	httpServer *http.Server
	vins       VINService
	checks     []ReadinessChecker
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer builds the router. Every checker must pass for /readyz to report ready.
func NewServer(addr string, vins VINService, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, checks ...ReadinessChecker) *Server {
	s := &Server{
		vins:    vins,
		checks:  checks,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/vin", func(r chi.Router) {
			r.Get("/history", s.handleHistory)
			r.Delete("/history", s.handleClearHistory)
			r.Delete("/history/{id}", s.handleRemoveHistory)
			r.Get("/cache", s.handleCacheStats)
			r.Delete("/cache", s.handleClearCache)
			r.Get("/{vin}", s.handleLookup)
		})
		r.Post("/boardfeet", s.handleBoardFeet)
		r.Get("/convert", s.handleConvert)
		r.Post("/discord/generate", s.handleDiscordGenerate)
		r.Get("/discord/parse", s.handleDiscordParse)
		r.Post("/snowday", s.handleSnowDay)
		r.Post("/markdown", s.handleMarkdown)
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

// instrument counts requests by matched route pattern so VINs and ids do not
// become label values.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.logger.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, c := range s.checks {
		if err := c.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}
