// Package server implements the opsradar HTTP API server.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opsradar-systems/opsradar/internal/server/handlers"
	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

const defaultMaxBodyBytes = 1 << 20 // 1 MiB

// Server is the opsradar HTTP API server.
type Server struct {
	router chi.Router
	cfg    types.ServerConfig
	logger *slog.Logger
	srv    *http.Server
}

// New creates a new HTTP server around the store and scan trigger. scanner
// may be nil; the scan endpoint then reports 503.
func New(cfg types.ServerConfig, st store.Store, scanner handlers.Scanner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: logger}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(MaxBodyMiddleware(maxBody))
	r.Use(APIKeyMiddleware(cfg.APIKey))
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	s.router = r
	s.registerRoutes(r, handlers.New(st, scanner, logger))
	return s
}

// Handler exposes the router, used by httptest in unit tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.logger.Info("opsradar server listening", "addr", s.cfg.Addr)
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}
