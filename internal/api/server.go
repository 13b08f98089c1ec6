// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	handlerapi "github.com/newthinker/tradermood/internal/api/handler/api"
	"github.com/newthinker/tradermood/internal/api/job"
	"github.com/newthinker/tradermood/internal/api/middleware"
	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/logger"
	"github.com/newthinker/tradermood/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the analysis pipeline over HTTP.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	jobs       *job.Store
	analysis   *handlerapi.AnalysisHandler
}

// Dependencies holds what the handlers need.
type Dependencies struct {
	Analyzer   handlerapi.Analyzer
	Inputs     config.InputConfig
	Metrics    *metrics.Registry // nil disables /metrics and request metrics
	OnComplete handlerapi.CompleteFunc
}

// NewServer creates a new HTTP server.
func NewServer(cfg config.ServerConfig, metricsCfg config.MetricsConfig, deps Dependencies, log *zap.Logger) (*Server, error) {
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	log = logger.OrNop(log)

	ttl := time.Duration(cfg.JobTTLHours) * time.Hour
	jobs := job.NewStore(cfg.MaxJobs, ttl)

	analysis := handlerapi.NewAnalysisHandler(jobs, deps.Analyzer, deps.Inputs, log)
	analysis.SetMetrics(deps.Metrics)
	if deps.OnComplete != nil {
		analysis.OnComplete(deps.OnComplete)
	}

	mux := http.NewServeMux()
	s := &Server{
		logger:   log,
		mux:      mux,
		jobs:     jobs,
		analysis: analysis,
	}
	s.setupRoutes(cfg.APIKey, metricsCfg, deps.Metrics)

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(log)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes. Only /api/v1 requires the API key.
func (s *Server) setupRoutes(apiKey string, metricsCfg config.MetricsConfig, reg *metrics.Registry) {
	auth := middleware.APIKeyAuth(apiKey)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if reg != nil && metricsCfg.Enabled {
		path := metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	s.mux.Handle("POST /api/v1/analysis", auth(http.HandlerFunc(s.analysis.Create)))
	s.mux.Handle("GET /api/v1/analysis", auth(http.HandlerFunc(s.analysis.List)))
	s.mux.Handle("GET /api/v1/analysis/{id}", auth(http.HandlerFunc(s.analysis.Get)))
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
