package api

import (
	"net/http"
	"time"

	"ontolock/internal/review"
	"ontolock/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version"`
	Uptime    string        `json:"uptime"`
	Review    review.Status `json:"review,omitempty"`
	Lockfile  bool          `json:"lockfile"`
}

// handleHealth responds to health check requests (simple liveness check)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}
	if s.session != nil {
		response.Review = s.session.Status()
	}
	if s.lock != nil {
		response.Lockfile = s.lock.Exists()
	}
	WriteJSON(w, response, http.StatusOK)
}
