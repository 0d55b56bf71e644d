// Package server exposes the HTTP surface: webhook ingestion, the message
// read API, health probes, and the metrics exposition.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"inboxd/internal/config"
	"inboxd/internal/domain"
	"inboxd/internal/metrics"
)

type Server struct {
	cfg     *config.Config
	store   domain.MessageStore
	metrics *metrics.Collector
	logger  *slog.Logger
	http    *http.Server
}

func New(cfg *config.Config, store domain.MessageStore, collector *metrics.Collector, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		metrics: collector,
		logger:  logger,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Router assembles the chi router. Exposed separately so tests can drive the
// full middleware stack through httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Signature", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Post("/webhook", s.handleWebhook)
	r.Get("/messages", s.handleListMessages)
	r.Get("/stats", s.handleStats)
	r.Get("/health/live", s.handleHealthLive)
	r.Get("/health/ready", s.handleHealthReady)
	r.Get("/metrics", s.metrics.Handler())

	return r
}

// Start runs the server until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}
