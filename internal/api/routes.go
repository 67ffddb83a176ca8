package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)

	// Probe runs train a classifier per request, so they get a token
	// bucket: burst of 5, then sustained 1 per 2 seconds.
	probeRateLimiter := NewRateLimiter(5, 2*time.Second)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.Get("/health", h.Health)

		// Protected routes (auth required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))
			r.Post("/score", h.Score)
			r.Post("/samples", h.IngestSamples)
			r.Get("/runs", h.ListRuns)
			r.With(probeRateLimiter.Middleware).Post("/probe", h.Probe)
		})
	})

	return r
}
