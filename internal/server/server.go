// Package server exposes the HTTP surface: chi router, caller-identity
// middleware, JSON handlers, and error-to-status mapping.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/venturescope/scout/internal/service"
	"github.com/venturescope/scout/internal/store"
)

// Server owns the router. Liveness and metrics sit outside the identity
// middleware; everything tenant-facing sits inside it.
type Server struct {
	svc    *service.Service
	store  store.Store
	router chi.Router
}

func New(svc *service.Service, st store.Store) *Server {
	s := &Server{svc: svc, store: st}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID", "X-Organization-ID", "X-Subscription-Tier"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RequestContext)

		r.Route("/discovery/runs", func(r chi.Router) {
			r.Post("/", s.handleStartDiscovery)
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
		})

		r.Route("/competitors", func(r chi.Router) {
			r.Get("/", s.handleListCompetitors)
			r.Get("/{id}", s.handleGetCompetitor)
			r.Patch("/{id}/validate", s.handleValidateCompetitor)
			r.Post("/{id}/enrich", s.handleEnrichCompetitor)
		})
	})

	return r
}
