package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server exposes the Prometheus registry on its own port.
type Server struct {
	server *http.Server
	logger zerolog.Logger
	port   int
}

// NewServer creates the metrics HTTP server. It does not listen until
// Start is called.
func NewServer(port int, logger zerolog.Logger) *Server {
	if port == 0 {
		port = 2112
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
		port:   port,
	}
}

// Start serves /metrics in a background goroutine.
func (s *Server) Start() {
	s.logger.Info().Int("port", s.port).Msg("Metrics server listening")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
