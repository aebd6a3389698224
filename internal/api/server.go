package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rohanmb/swingline/pkg/config"
	"github.com/rohanmb/swingline/pkg/logger"
)

// Server is the HTTP API surface: pipeline trigger, recommendation
// reads, status transitions, health and metrics
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
	cfg        *config.Config
}

// New creates the API server
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
		cfg: cfg,
	}
}

// Start starts the HTTP server, blocking until shutdown
func (s *Server) Start() error {
	s.log.WithFields(map[string]interface{}{
		"port": s.cfg.Port,
		"env":  s.cfg.Env,
	}).Info("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down API server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
