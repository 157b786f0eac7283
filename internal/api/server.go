// Package api exposes the scoring pipeline over HTTP: analyses are
// submitted as background tasks and polled for their result.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/opinionscience/wikimetron/internal/config"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server is the HTTP front of the analysis pipeline.
type Server struct {
	cfg        *config.Config
	analyzer   Analyzer
	timeseries TimeseriesSource
	tasks      *taskRegistry
	logger     zerolog.Logger

	httpServer *http.Server
	stopEvict  chan struct{}
	startTime  time.Time
	version    string
}

// NewServer wires the HTTP layer. The analyzer and timeseries source are
// interfaces so tests can stub the pipeline away.
func NewServer(cfg *config.Config, analyzer Analyzer, timeseries TimeseriesSource, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		analyzer:   analyzer,
		timeseries: timeseries,
		tasks:      newTaskRegistry(cfg.API.MaxTasks, cfg.API.TaskTTL, logger),
		logger:     logger.With().Str("component", "api").Logger(),
		stopEvict:  make(chan struct{}),
		startTime:  time.Now(),
		version:    Version,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/live", s.handleLiveness)
	mux.HandleFunc("GET /health/ready", s.handleReadiness)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/tasks", s.handleTasks)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleTask)
	mux.HandleFunc("GET /api/pageviews", s.handlePageviews)
	mux.HandleFunc("GET /api/edit-timeseries", s.handleEditTimeseries)
	return mux
}

// Handler assembles the middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.routes()
	h = MetricsMiddleware(h)
	h = RateLimitMiddleware(s.cfg.API.RateLimit)(h)
	h = CORSMiddleware(h)
	h = LoggerMiddleware(s.logger)(h)
	h = RecoveryMiddleware(s.logger)(h)
	h = RequestIDMiddleware(h)
	return h
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	go s.tasks.RunEviction(s.stopEvict)
	s.logger.Info().Int("port", s.cfg.API.Port).Msg("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the eviction loop.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopEvict)
	return s.httpServer.Shutdown(ctx)
}
