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

// maxCodeBytes bounds the size of a feedback request body.
const maxCodeBytes = 1 << 20

// FeedbackDependencies defines the interface for scoring code.
type FeedbackDependencies interface {
	GenerateFeedback(ctx context.Context, req service.FeedbackRequest) (model.Feedback, error)
}

// FeedbackHandler handles feedback requests.
type FeedbackHandler struct {
	deps   FeedbackDependencies
	logger logger.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(deps FeedbackDependencies, log logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{deps: deps, logger: log}
}

// HandlePostFeedback handles POST /feedback requests. Learners without
// feedback get 200 with shown=false, never an error.
func (h *FeedbackHandler) HandlePostFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_feedback"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCodeBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.ProblemID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing problem_id")))
		return
	}

	fb, err := h.deps.GenerateFeedback(r.Context(), service.FeedbackRequest{
		ProblemID: req.ProblemID,
		SubjectID: req.SubjectID,
		Code:      req.Code,
		Subgoals:  req.Subgoals,
	})
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}
