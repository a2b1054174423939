package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// registerRoutes registers all API routes. Everything except /health sits
// behind the reviewer token when one is configured. Decisions must be sent
// as JSON.
func (s *Server) registerRoutes(reviewerAuth func(http.Handler) http.Handler) {
	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(reviewerAuth)

		r.Get("/diff", s.handleDiff)
		r.Get("/lock", s.handleLock)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleHistoryEntry)

		r.With(RequireJSONMiddleware()).Post("/approve", s.handleApprove)
		r.With(RequireJSONMiddleware()).Post("/reject", s.handleReject)
	})
}
