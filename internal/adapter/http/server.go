package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/geolocation"
	"github.com/couchcryptid/location-resolver/internal/session"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Searcher runs autocomplete. *geocode.Searcher satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []domain.SearchCandidate
}

// Deps are the services behind the API routes.
type Deps struct {
	Search     Searcher
	Controller *session.Controller

	// IPSource returns a coarse position source for a client IP. Nil
	// disables detection without a device fix.
	IPSource func(ip string) geolocation.PositionSource

	// Session serves the WebSocket input session. Nil disables the route.
	Session http.Handler

	Ready sharedobs.ReadinessChecker
}

// Server exposes the location API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /v1 API, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /v1/search", s.handleSearch)
	mux.HandleFunc("GET /v1/reverse", s.handleReverse)
	mux.HandleFunc("POST /v1/locate/select", s.handleSelect)
	mux.HandleFunc("POST /v1/locate/detect", s.handleDetect)
	mux.HandleFunc("POST /v1/distance", s.handleDistance)
	if deps.Session != nil {
		mux.Handle("GET /v1/session", deps.Session)
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

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
