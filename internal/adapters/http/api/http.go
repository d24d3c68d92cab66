// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"image"
	"net/http"

	service "github.com/easyshift/presence/internal/app"
	"github.com/easyshift/presence/internal/domain/model"
)

// Controller bundles the scan-session operations the handler layer needs.
// Using an interface bundle keeps the handler layer loosely coupled to
// implementations in other packages.
type Controller interface {
	StartSession(ctx context.Context) (string, error)
	CancelSession(id string) error
	SessionStatus(id string) (service.SessionSnapshot, error)
	SubmitImage(ctx context.Context, img image.Image) (model.AttendanceEvent, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sessionsHandler *SessionsHandler
	photoHandler    *PhotoHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(ctrl Controller, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sessionsHandler: NewSessionsHandler(ctrl),
		photoHandler:    NewPhotoHandler(ctrl),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleByID, "sessions"))
	mux.HandleFunc("/attendance/photo", MetricsMiddleware(s.photoHandler.HandleUpload, "attendance_photo"))
}

type sessionResponse struct {
	ID string `json:"id"`
}

type attendanceResponse struct {
	SessionID string `json:"session_id"`
	Payload   string `json:"payload"`
	Method    string `json:"method"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
