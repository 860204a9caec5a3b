package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/internal/domain/normalize"
	"github.com/okian/stride/internal/domain/progress"
	"github.com/okian/stride/pkg/logger"
	"github.com/okian/stride/pkg/metrics"
)

// Feedback outcomes as reported to metrics.
const (
	OutcomeShown   = "shown"
	OutcomeControl = "control"
	OutcomeNoModel = "no_model"
	OutcomeError   = "error"
)

// FeedbackRequest asks for feedback on one code sample.
type FeedbackRequest struct {
	ProblemID string
	SubjectID string
	Code      string
	// Subgoals limits subgoal scoring to these ids. Nil scores every
	// subgoal the model knows.
	Subgoals []int
}

// GenerateFeedback scores req.Code against the published model. Control
// subjects and problems without a model get Shown=false; the error is
// reserved for store and configuration failures.
func (s *Service) GenerateFeedback(ctx context.Context, req FeedbackRequest) (model.Feedback, error) {
	start := time.Now()
	outcome := OutcomeError
	defer func() {
		metrics.RecordFeedback(outcome, float64(time.Since(start).Milliseconds()))
	}()

	if req.ProblemID == "" {
		return model.Feedback{}, fmt.Errorf("%w: problem id is required", ErrInvalidRequest)
	}

	intervention, err := s.assigner.Assign(ctx, req.SubjectID, req.ProblemID)
	if err != nil {
		recordError("condition", err)
		s.logger.Error(ctx, "condition assignment failed",
			logger.String("problem_id", req.ProblemID), logger.Error(err))
		return model.Feedback{}, fmt.Errorf("assign condition: %w", err)
	}
	metrics.RecordConditionAssignment(intervention)
	if !intervention {
		outcome = OutcomeControl
		return model.Feedback{Shown: false}, nil
	}

	rec, err := s.store.Get(ctx, req.ProblemID)
	if isNotFound(err) {
		outcome = OutcomeNoModel
		return model.Feedback{Shown: false}, nil
	}
	if err != nil {
		recordError("repository", err)
		s.logger.Error(ctx, "model lookup failed",
			logger.String("problem_id", req.ProblemID), logger.Error(err))
		return model.Feedback{}, fmt.Errorf("get model: %w", err)
	}

	fb := s.score(ctx, rec, req)
	outcome = OutcomeShown
	return fb, nil
}

func (s *Service) score(ctx context.Context, rec *model.Record, req FeedbackRequest) model.Feedback {
	norm, _ := normalize.For(rec.Language)
	code := norm.Normalize(req.Code)

	x := rec.ProgressVectorizer().Transform(code)
	p := rec.Progress.Score(x)
	fb := model.Feedback{Shown: true, Progress: &p}

	ids := req.Subgoals
	if ids == nil {
		ids = rec.Progress.Subgoals()
	}
	if len(ids) > 0 {
		fb.Subgoals = make(map[int]float64, len(ids))
		for _, id := range ids {
			v, err := rec.Progress.ScoreSubgoal(x, id)
			if errors.Is(err, progress.ErrUnknownSubgoal) {
				metrics.RecordUnknownSubgoal()
				s.logger.Debug(ctx, "unknown subgoal, using whole-model score",
					logger.String("problem_id", rec.ProblemID), logger.Int("subgoal", id))
				v = p
			}
			fb.Subgoals[id] = v
		}
	}

	if cv := rec.ClassifierVectorizer(); cv != nil {
		sc := rec.Classifier.PredictProbability(cv.Transform(code))
		fb.Score = &sc
	}
	return fb
}
