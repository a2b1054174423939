package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ontolock/internal/diff"
	"ontolock/internal/history"
	"ontolock/internal/lockfile"
	"ontolock/internal/review"
)

// DiffResponse is the body of GET /diff.
type DiffResponse struct {
	SessionID string          `json:"sessionId"`
	Status    review.Status   `json:"status"`
	Reason    lockfile.Reason `json:"reason"`
	OldHash   string          `json:"oldHash,omitempty"`
	NewHash   string          `json:"newHash"`
	CreatedAt time.Time       `json:"createdAt"`
	Diff      *diff.Diff      `json:"diff"`
}

// DecisionResponse is the body returned by approve and reject.
type DecisionResponse struct {
	SessionID string           `json:"sessionId"`
	Status    review.Status    `json:"status"`
	Record    *lockfile.Record `json:"record,omitempty"`
}

// HistoryResponse is the body of GET /history.
type HistoryResponse struct {
	Enabled bool            `json:"enabled"`
	Entries []history.Entry `json:"entries"`
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		NotFound(w, "no review is pending")
		return
	}
	m := s.session.Mismatch()
	d := *s.session.Diff()
	d.Changes = d.Sorted()

	WriteJSON(w, DiffResponse{
		SessionID: s.session.ID(),
		Status:    s.session.Status(),
		Reason:    m.Reason,
		OldHash:   m.OldHash,
		NewHash:   m.NewHash,
		CreatedAt: s.session.CreatedAt(),
		Diff:      &d,
	}, http.StatusOK)
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	if s.lock == nil {
		NotFound(w, "no lockfile configured")
		return
	}
	rec, err := s.lock.Read(r.Context())
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, rec, http.StatusOK)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 50)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	if s.history == nil {
		WriteJSON(w, HistoryResponse{Entries: []history.Entry{}}, http.StatusOK)
		return
	}
	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		InternalError(w, "Failed to read history", err)
		return
	}
	WriteJSON(w, HistoryResponse{Enabled: true, Entries: entries}, http.StatusOK)
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		NotFound(w, "history is disabled")
		return
	}
	e, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		InternalError(w, "Failed to read history", err)
		return
	}
	if e == nil {
		NotFound(w, "no such history entry")
		return
	}
	WriteJSON(w, e, http.StatusOK)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		NotFound(w, "no review is pending")
		return
	}
	req, err := parseDecision(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	rec, err := s.session.Approve(r.Context(), req.Reviewer)
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, DecisionResponse{SessionID: s.session.ID(), Status: s.session.Status(), Record: rec}, http.StatusOK)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		NotFound(w, "no review is pending")
		return
	}
	req, err := parseDecision(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	if err := s.session.Reject(r.Context(), req.Reviewer, req.Reason); err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, DecisionResponse{SessionID: s.session.ID(), Status: s.session.Status()}, http.StatusOK)
}
