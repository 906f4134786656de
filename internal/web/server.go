// Package web exposes the ingestion service over HTTP.
package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/reportload/internal/config"
	"github.com/JonMunkholm/reportload/internal/core"
	mw "github.com/JonMunkholm/reportload/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Ingester is the part of core.Service the HTTP layer drives.
type Ingester interface {
	Types() []core.TypeInfo
	Ingest(ctx context.Context, typeKey, fileName string, data []byte) (*core.BulkResult, error)
	IngestStream(ctx context.Context, typeKey, fileName string, r io.Reader) (*core.BulkResult, error)
	Run(runID string) (*core.BulkResult, bool)
	RecentRuns() []*core.BulkResult
	LimiterStatus() core.RunLimiterStatus
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the ingestion service.
type Server struct {
	service Ingester
	db      Pinger
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server. db may be nil, in which case the health check
// only reports the run limiter.
func NewServer(service Ingester, db Pinger, cfg *config.Config) (*Server, error) {
	s := &Server{
		service: service,
		db:      db,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	if err := s.setupMiddleware(); err != nil {
		return nil, err
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() error {
	trusted, err := mw.ParseTrustedProxies(s.cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(trusted))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)
	return nil
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/types", s.handleListTypes)

		r.Post("/ingest/{typeKey}", s.handleIngest)

		r.Get("/runs", s.handleRecentRuns)
		r.Get("/runs/{runID}", s.handleRun)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
