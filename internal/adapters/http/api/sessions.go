// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	service "github.com/easyshift/presence/internal/app"
)

// SessionsHandler handles live scan-session requests.
type SessionsHandler struct {
	ctrl Controller
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(ctrl Controller) *SessionsHandler {
	return &SessionsHandler{ctrl: ctrl}
}

// HandleCreate handles POST /sessions requests.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	id, err := h.ctrl.StartSession(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionActive):
			writeError(w, http.StatusConflict, "session_active", err)
		case errors.Is(err, service.ErrNoIdentity):
			writeError(w, http.StatusUnauthorized, "no_identity", err)
		case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrNoCaptureSource):
			writeError(w, http.StatusServiceUnavailable, "unavailable", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusAccepted, sessionResponse{ID: id})
}

// HandleByID handles GET /sessions/{id} and POST /sessions/{id}/cancel.
func (h *SessionsHandler) HandleByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if path == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	if id, ok := strings.CutSuffix(path, "/cancel"); ok {
		h.handleCancel(w, r, id)
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	h.handleStatus(w, r, path)
}

func (h *SessionsHandler) handleStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snap, err := h.ctrl.SessionStatus(id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionsHandler) handleCancel(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := h.ctrl.CancelSession(id); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}
