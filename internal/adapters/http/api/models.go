package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/stride/internal/app"
	"github.com/okian/stride/pkg/logger"
)

// ModelDependencies defines the instructor-facing model operations.
type ModelDependencies interface {
	ModelInfo(ctx context.Context, problemID string) (service.ModelInfo, error)
	SolutionCover(ctx context.Context, problemID string) ([]string, error)
	Rebuild(ctx context.Context, problemID string) error
}

// ModelsHandler handles /models/{problem_id} requests.
type ModelsHandler struct {
	deps   ModelDependencies
	logger logger.Logger
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(deps ModelDependencies, log logger.Logger) *ModelsHandler {
	return &ModelsHandler{deps: deps, logger: log}
}

func problemID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("problem_id"))
	return id, id != ""
}

// HandleGetModel handles GET /models/{problem_id}.
func (h *ModelsHandler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_model"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	id, ok := problemID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	info, err := h.deps.ModelInfo(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleGetCover handles GET /models/{problem_id}/cover.
func (h *ModelsHandler) HandleGetCover(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_cover"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	id, ok := problemID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	cover, err := h.deps.SolutionCover(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, coverResponse{ProblemID: id, Solutions: cover})
}

// HandlePostRebuild handles POST /models/{problem_id}/rebuild.
func (h *ModelsHandler) HandlePostRebuild(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_rebuild"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	id, ok := problemID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.Rebuild(r.Context(), id); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	info, err := h.deps.ModelInfo(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
