package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stride/internal/adapters/eventlog"
	"github.com/okian/stride/internal/domain/classifier"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/internal/domain/normalize"
	"github.com/okian/stride/internal/domain/progress"
	"github.com/okian/stride/pkg/logger"
	"github.com/okian/stride/pkg/metrics"
)

// LogResult reports what LogEvent stored.
type LogResult struct {
	EventID   string
	Duplicate bool
}

// LogEvent appends e to the event log and, when e names a problem, queues
// a rebuild check. A missing EventID is generated. Re-logging a known
// EventID is reported as a duplicate, not an error. Rebuild outcomes never
// affect the result.
func (s *Service) LogEvent(ctx context.Context, e model.Event) (LogResult, error) { //nolint:gocritic // hugeParam: events are values
	if e.EventType == "" {
		return LogResult{}, fmt.Errorf("%w: event type is required", ErrInvalidRequest)
	}
	if e.Score != nil && (*e.Score < 0 || *e.Score > 1) {
		return LogResult{}, fmt.Errorf("%w: score must be within [0,1]", ErrInvalidRequest)
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.ServerTimestamp.IsZero() {
		e.ServerTimestamp = s.now()
	}

	err := s.events.Append(ctx, e)
	if errors.Is(err, eventlog.ErrDuplicateEvent) {
		metrics.RecordEventDuplicate()
		return LogResult{EventID: e.EventID, Duplicate: true}, nil
	}
	if err != nil {
		recordError("eventlog", err)
		s.logger.Error(ctx, "event append failed",
			logger.String("event_id", e.EventID), logger.Error(err))
		return LogResult{}, fmt.Errorf("append event: %w", err)
	}
	metrics.RecordEventLogged(e.EventType)

	if e.ProblemID != "" {
		s.scheduleRebuild(ctx, e.ProblemID)
	}
	return LogResult{EventID: e.EventID}, nil
}

// ModelInfo describes a published model.
type ModelInfo struct {
	ProblemID        string             `json:"problem_id"`
	TrainingCount    int                `json:"training_count"`
	TrainedAt        time.Time          `json:"trained_at"`
	Language         string             `json:"language,omitempty"`
	VocabularySize   int                `json:"vocabulary_size"`
	UsefulTokens     []string           `json:"useful_tokens"`
	Subgoals         []int              `json:"subgoals,omitempty"`
	MinScore         float64            `json:"min_score"`
	MaxScore         float64            `json:"max_score"`
	Degenerate       bool               `json:"degenerate,omitempty"`
	Warnings         []string           `json:"warnings,omitempty"`
	ClassifierStages []classifier.Stage `json:"classifier_stages,omitempty"`
}

// ModelInfo returns a summary of the model published for problemID.
func (s *Service) ModelInfo(ctx context.Context, problemID string) (ModelInfo, error) {
	rec, err := s.record(ctx, problemID)
	if err != nil {
		return ModelInfo{}, err
	}
	info := ModelInfo{
		ProblemID:      rec.ProblemID,
		TrainingCount:  rec.TrainingCount,
		TrainedAt:      rec.TrainedAt,
		Language:       rec.Language,
		VocabularySize: len(rec.Progress.Vocabulary),
		UsefulTokens:   rec.Progress.UsefulTokens(),
		Subgoals:       rec.Progress.Subgoals(),
		MinScore:       rec.Progress.MinScore,
		MaxScore:       rec.Progress.MaxScore,
		Degenerate:     rec.Progress.Degenerate,
		Warnings:       rec.Progress.Warnings,
	}
	if rec.Classifier != nil {
		info.ClassifierStages = rec.Classifier.Stages
	}
	return info, nil
}

// SolutionCover returns a small set of correct solutions that together
// contain every useful feature of the published model.
func (s *Service) SolutionCover(ctx context.Context, problemID string) ([]string, error) {
	rec, err := s.record(ctx, problemID)
	if err != nil {
		return nil, err
	}
	subs, err := s.events.CorrectSubmissions(ctx, problemID)
	if err != nil {
		recordError("eventlog", err)
		return nil, fmt.Errorf("load correct submissions: %w", err)
	}

	norm, _ := normalize.For(rec.Language)
	vec := rec.ProgressVectorizer()
	rows := make([][]float64, len(subs))
	for i, sub := range subs {
		rows[i] = vec.Transform(norm.Normalize(sub.Code))
	}

	idx := progress.MinimumCover(rec.Progress, rows)
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = subs[j].Code
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, problemID string) (*model.Record, error) {
	if problemID == "" {
		return nil, fmt.Errorf("%w: problem id is required", ErrInvalidRequest)
	}
	rec, err := s.store.Get(ctx, problemID)
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrNoModel, problemID)
	}
	if err != nil {
		recordError("repository", err)
		return nil, fmt.Errorf("get model: %w", err)
	}
	return rec, nil
}
