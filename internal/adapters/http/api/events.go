package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/stride/internal/app"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/logger"
)

// EventDependencies defines the interface for event logging.
type EventDependencies interface {
	LogEvent(ctx context.Context, e model.Event) (service.LogResult, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps   EventDependencies
	logger logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies, log logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, logger: log}
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.EventType) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing event_type")))
		return
	}

	res, err := h.deps.LogEvent(r.Context(), req.event())
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	if res.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: res.EventID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: res.EventID})
}
