// Package api exposes the content repository and the sync coordinator over
// an HTTP admin interface.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CreativeUnicorns/navsync"
	"github.com/CreativeUnicorns/navsync/apperror"
	"github.com/CreativeUnicorns/navsync/content"
	"github.com/CreativeUnicorns/navsync/datasync"
	"github.com/CreativeUnicorns/navsync/notify"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	coordinator   *datasync.Coordinator
	content       *content.Repository
	errors        *apperror.Handler
	notifications *notify.Center
	logger        navsync.Logger
	router        *chi.Mux
	httpServer    *http.Server
}

// Config holds configuration for the API server.
type Config struct {
	ListenAddress string
	Coordinator   *datasync.Coordinator
	Content       *content.Repository
	// Errors defaults to the coordinator's handler.
	Errors *apperror.Handler
	// Notifications is optional; without it the notification routes answer 404.
	Notifications *notify.Center
	Logger        navsync.Logger
}

// NewServer creates and configures a new API server instance.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if cfg.Content == nil {
		return nil, fmt.Errorf("content repository is required")
	}
	if cfg.Errors == nil {
		cfg.Errors = cfg.Coordinator.Handler()
	}
	if cfg.Logger == nil {
		cfg.Logger = navsync.NewDefaultLogger()
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}

	s := &Server{
		coordinator:   cfg.Coordinator,
		content:       cfg.Content,
		errors:        cfg.Errors,
		notifications: cfg.Notifications,
		logger:        cfg.Logger,
		router:        chi.NewRouter(),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: s.router,
		// Force sync and restore talk to the remote store with retries.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the router, for tests and for mounting under another mux.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until it is shut down.
// It returns nil after a graceful Stop.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("API server stopping")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("API server stopped gracefully")
	return nil
}
