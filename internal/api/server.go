// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes publish and status endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/nerve/internal/api/middleware"
	"github.com/ManuGH/nerve/internal/core"
	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/health"
	"github.com/ManuGH/nerve/internal/journal"
	"github.com/ManuGH/nerve/internal/log"
	"github.com/ManuGH/nerve/internal/message"
)

// Backend is what the handlers need from the core.
type Backend interface {
	Publish(ctx context.Context, kind event.Kind, value any) (*message.Message, error)
	Broadcast(ctx context.Context, kind event.Kind, value any) (*message.Message, error)
	Status() core.Status
	Catalogue() *event.Catalogue
	Journal() journal.Store
}

// Config controls the HTTP server.
type Config struct {
	ListenAddr string
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit      int
	TracingService string
	// Health serves /healthz and /readyz; nil means no component checks.
	Health *health.Manager
}

// Server serves the operator API.
type Server struct {
	cfg     Config
	backend Backend
	router  chi.Router
	logger  zerolog.Logger
}

func New(cfg Config, backend Backend) *Server {
	s := &Server{
		cfg:     cfg,
		backend: backend,
		logger:  log.WithComponent("api"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		EnableLogging:  true,
		TracingService: s.cfg.TracingService,
	})

	hm := s.cfg.Health
	if hm == nil {
		hm = health.NewManager("")
	}
	r.Get("/healthz", hm.ServeHealth)
	r.Get("/readyz", hm.ServeReady)
	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestLimit: s.cfg.RateLimit,
				WindowSize:   time.Minute,
			}))
		}
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleListEvents)
		r.Post("/events", s.handlePublish)
		r.Get("/journal", s.handleJournal)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
