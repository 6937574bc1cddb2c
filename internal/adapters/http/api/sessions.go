package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/dwell/internal/domain/model"
)

// SessionsHandler handles session submission and status reads.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandlePostSession handles POST /sessions requests. The payload is only
// shape-checked here; full validation is the pipeline's first step, so a
// structurally complete but semantically invalid session is still accepted
// and terminates with the invalid status.
func (h *SessionsHandler) HandlePostSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_session"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var s model.Session
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if s.SessionID == "" {
		s.SessionID = uuid.New().String()
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), s.SessionID) {
		writeJSON(w, http.StatusOK, ackResponse{SessionID: s.SessionID, Status: "duplicate", Duplicate: true})
		return
	}

	// Try to enqueue for async processing
	if ok := h.deps.Enqueue(r.Context(), s); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), s.SessionID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{SessionID: s.SessionID, Status: "accepted", Duplicate: false})
}

// HandleGetSession handles GET /sessions/{id} requests, returning the
// terminal processing status once the pipeline has written one.
func (h *SessionsHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	status, err := h.deps.SessionStatus(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", errors.New("no status recorded for session"))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}
