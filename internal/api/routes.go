package api

import (
	"net/http"

	"statusgen/internal/version"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Health and diagnostics
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/status", s.handleStatus)

	// Report generation
	s.router.HandleFunc("/report", s.handleReport)
	s.router.HandleFunc("/report/stream", s.handleReportStream)

	// Root endpoint
	s.router.HandleFunc("/", s.handleRoot)
}

// handleRoot handles requests to the root path
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	WriteJSON(w, map[string]interface{}{
		"name":    "statusgen HTTP API",
		"version": version.Version,
		"endpoints": []string{
			"GET /health - Health check",
			"GET /status - Daemon status",
			"POST /report - Generate a report (modes: discover, page, finalize, oneshot)",
			"POST /report/stream - Generate a report with NDJSON progress events",
		},
	}, http.StatusOK)
}
