// Package api exposes the report pipeline over HTTP for the serve daemon:
// a JSON report endpoint with discover/page/finalize/oneshot modes, a
// streaming NDJSON variant, and health/status probes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"statusgen/internal/logging"
	"statusgen/internal/paging"
	"statusgen/internal/pipeline"
)

// Options configures the server.
type Options struct {
	Addr     string
	Protocol *paging.Protocol
	// Pipeline is the dependency set used for streaming and oneshot runs.
	Pipeline pipeline.Deps
	// TokenHash enables bearer auth when non-empty. Empty means open access,
	// intended only for loopback binds.
	TokenHash string
	Logger    *logging.Logger
}

// Server is the HTTP API server.
type Server struct {
	router    *http.ServeMux
	server    *http.Server
	addr      string
	logger    *logging.Logger
	protocol  *paging.Protocol
	pipeline  pipeline.Deps
	tokenHash string
	startedAt time.Time
}

// NewServer creates a server with routes and middleware configured.
func NewServer(opts Options) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		addr:      opts.Addr,
		logger:    opts.Logger,
		protocol:  opts.Protocol,
		pipeline:  opts.Pipeline,
		tokenHash: opts.TokenHash,
		startedAt: time.Now(),
	}

	s.registerRoutes()

	handler := s.applyMiddleware(s.router)
	s.server = &http.Server{
		Addr:    opts.Addr,
		Handler: handler,
		// No WriteTimeout: streaming runs hold the connection open for as
		// long as the upstream fetches take.
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": s.addr,
	})

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", nil)

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last one wraps first)
	handler = AuthMiddleware(s.tokenHash, s.logger)(handler)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = CORSMiddleware()(handler)
	return handler
}
