// Package server exposes the lifecycle engine over HTTP: JSON endpoints
// for the boundary operations and a server-sent-events stream per intent.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/intentd/internal/engine"
)

// Server wires the engine to its HTTP surface.
type Server struct {
	engine  *engine.Engine
	log     *slog.Logger
	metrics *metrics

	// heartbeat is the SSE keepalive interval; shortened in tests.
	heartbeat time.Duration
}

// New creates a Server around an engine.
func New(eng *engine.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:    eng,
		log:       log,
		metrics:   newMetrics(eng),
		heartbeat: 15 * time.Second,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/intents", func(r chi.Router) {
			r.Post("/", s.handleCreate)
			r.Get("/", s.handleList)
			r.Get("/{id}", s.handleGet)
			r.Post("/{id}/cancel", s.handleCancel)
			r.Get("/{id}/events", s.handleEvents)
		})
		r.Route("/control", func(r chi.Router) {
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/kill", s.handleKill)
		})
		r.Get("/queue", s.handleQueue)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		s.metrics.registry, promhttp.HandlerOpts{}))

	return r
}
