package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Server serves the health and metrics endpoints on a dedicated port,
// separate from the deliberation API.
type Server struct {
	httpServer *http.Server
	port       int
}

// NewServer creates an observability server for the given port.
func NewServer(port int) *Server {
	return &Server{port: port}
}

// Start blocks serving /health, /health/live, /health/ready, and /metrics.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler())
	mux.HandleFunc("/health/live", LivenessHandler())
	mux.HandleFunc("/health/ready", ReadinessHandler())
	mux.Handle("/metrics", MetricsHandler())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
