// Package server provides the HTTP surface for the cloud entry point.
// A message-topic push (Pub/Sub style) hits the trigger endpoint; the
// payload itself is not consumed, only its arrival.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/joshwigginton/composer-signals-alpaca/internal/journal"
	"github.com/joshwigginton/composer-signals-alpaca/internal/rebalance"
)

// Config holds HTTP server configuration
type Config struct {
	Port    int
	Service *rebalance.Service
	Journal *journal.Journal // Optional; run-history endpoints 404 without it
	Log     zerolog.Logger
}

// Server wraps the HTTP server and routing
type Server struct {
	router  *chi.Mux
	server  *http.Server
	service *rebalance.Service
	journal *journal.Journal
	started time.Time
	log     zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		service: cfg.Service,
		journal: cfg.Journal,
		started: time.Now(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/system/status", s.handleSystemStatus)

	s.router.Post("/api/rebalance/trigger", s.handleTrigger)
	s.router.Post("/api/rebalance/run", s.handleManualRun)
	s.router.Get("/api/rebalance/last-run", s.handleLastRun)
	s.router.Get("/api/rebalance/runs", s.handleRecentRuns)
}

// Start starts the HTTP server (blocks until shutdown)
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
