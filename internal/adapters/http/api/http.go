// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/stride/internal/app"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/internal/domain/progress"
	"github.com/okian/stride/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	FeedbackDependencies
	EventDependencies
	ModelDependencies
	StatsProvider
}

// Server wires HTTP routes for the feedback API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	feedbackHandler *FeedbackHandler
	modelsHandler   *ModelsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	log := logger.Get().Named("api")
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		eventsHandler:   NewEventsHandler(deps, log),
		feedbackHandler: NewFeedbackHandler(deps, log),
		modelsHandler:   NewModelsHandler(deps, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/feedback", MetricsMiddleware(s.feedbackHandler.HandlePostFeedback, "feedback"))
	mux.HandleFunc("/models/{problem_id}", MetricsMiddleware(s.modelsHandler.HandleGetModel, "models"))
	mux.HandleFunc("/models/{problem_id}/cover", MetricsMiddleware(s.modelsHandler.HandleGetCover, "models_cover"))
	mux.HandleFunc("/models/{problem_id}/rebuild", MetricsMiddleware(s.modelsHandler.HandlePostRebuild, "models_rebuild"))
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

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

// writeServiceError maps service errors to responses. Anything not
// attributable to the request is logged and answered with a generic 503.
func writeServiceError(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNoModel):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, progress.ErrInsufficientData):
		writeError(w, http.StatusConflict, "insufficient_data", WrapKind(op, ErrConflict, err))
	default:
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", nil)
	}
}

// Request and response shapes shared with the OpenAPI document.
type (
	feedbackRequest struct {
		ProblemID string `json:"problem_id"`
		SubjectID string `json:"subject_id"`
		Code      string `json:"code"`
		Subgoals  []int  `json:"subgoals,omitempty"`
	}

	eventRequest struct {
		EventID         string   `json:"event_id"`
		SubjectID       string   `json:"subject_id"`
		ProblemID       string   `json:"problem_id"`
		AssignmentID    string   `json:"assignment_id"`
		EventType       string   `json:"event_type"`
		Code            string   `json:"code"`
		ClientTimestamp string   `json:"client_timestamp"`
		Score           *float64 `json:"score"`
	}

	ackResponse struct {
		Status    string `json:"status"`
		EventID   string `json:"event_id"`
		Duplicate bool   `json:"duplicate"`
	}

	coverResponse struct {
		ProblemID string   `json:"problem_id"`
		Solutions []string `json:"solutions"`
	}
)

func (e eventRequest) event() model.Event {
	return model.Event{
		EventID:         e.EventID,
		SubjectID:       e.SubjectID,
		ProblemID:       e.ProblemID,
		AssignmentID:    e.AssignmentID,
		EventType:       e.EventType,
		Code:            e.Code,
		ClientTimestamp: e.ClientTimestamp,
		Score:           e.Score,
	}
}
