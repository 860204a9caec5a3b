// Package scheduler decides when a problem's models are stale and rebuilds
// them.
//
// A first model is built once a problem has min-correct distinct correct
// submissions; after that a retrain needs increment more. Rebuilds for one
// problem never overlap; different problems rebuild independently. A failed
// rebuild leaves the published record untouched.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/stride/internal/adapters/repository"
	"github.com/okian/stride/internal/domain/classifier"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/internal/domain/normalize"
	"github.com/okian/stride/internal/domain/progress"
	"github.com/okian/stride/internal/domain/subgoal"
	"github.com/okian/stride/internal/domain/vectorize"
	"github.com/okian/stride/pkg/logger"
	"github.com/okian/stride/pkg/metrics"
)

// Rebuild outcomes as reported to metrics.
const (
	OutcomePublished = "published"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Dataset is the training data source.
type Dataset interface {
	DistinctCorrectCount(ctx context.Context, problemID string) (int, error)
	CorrectSubmissions(ctx context.Context, problemID string) ([]model.Submission, error)
	LabeledSubmissions(ctx context.Context, problemID string) ([]model.Submission, error)
	ReferenceCode(problemID string) (string, bool)
	SubgoalDefinitions(problemID string) (*subgoal.Definition, bool)
	Language(problemID string) string
}

// Scheduler owns the rebuild policy and the training pipeline.
type Scheduler struct {
	dataset Dataset
	store   repository.Store

	minCorrect int
	increment  int

	minFeatureProportion float64
	maxScorePercentile   float64
	classifierEnabled    bool
	ngramMin, ngramMax   int

	group singleflight.Group
	locks sync.Map // problem id -> *sync.Mutex

	now    func() time.Time
	logger logger.Logger
}

// New creates a Scheduler.
func New(ds Dataset, store repository.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		dataset:              ds,
		store:                store,
		minCorrect:           DefaultMinCorrectCount,
		increment:            DefaultIncrement,
		minFeatureProportion: 0.5,
		maxScorePercentile:   0.25,
		classifierEnabled:    true,
		ngramMin:             1,
		ngramMax:             3,
		now:                  time.Now,
		logger:               logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Due applies the rebuild hysteresis: never below minCorrect, always on
// first crossing it, then only after increment more since the last train.
func Due(current, lastTrained int, hasRecord bool, minCorrect, increment int) bool {
	if current < minCorrect {
		return false
	}
	if !hasRecord {
		return true
	}
	return current >= lastTrained+increment
}

// ShouldRebuild reports whether problemID needs a new model.
func (s *Scheduler) ShouldRebuild(ctx context.Context, problemID string) (bool, error) {
	current, err := s.dataset.DistinctCorrectCount(ctx, problemID)
	if err != nil {
		return false, fmt.Errorf("count correct submissions: %w", err)
	}
	last, ok, err := s.store.TrainingCount(ctx, problemID)
	if err != nil {
		return false, fmt.Errorf("read watermark: %w", err)
	}
	return Due(current, last, ok, s.minCorrect, s.increment), nil
}

// MaybeRebuild rebuilds problemID if it is due. Calls that arrive before a
// check starts share it; later calls wait for the running rebuild and check
// again. It reports whether a model was published.
func (s *Scheduler) MaybeRebuild(ctx context.Context, problemID string) (bool, error) {
	v, err, _ := s.group.Do(problemID, func() (any, error) {
		// The running rebuild may have read its training set already.
		s.group.Forget(problemID)

		mu := s.lock(problemID)
		mu.Lock()
		defer mu.Unlock()

		due, err := s.ShouldRebuild(ctx, problemID)
		if err != nil {
			metrics.RecordRebuild(OutcomeFailed, 0)
			return false, err
		}
		if !due {
			metrics.RecordRebuild(OutcomeSkipped, 0)
			return false, nil
		}
		if _, err := s.rebuild(ctx, problemID); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Rebuild retrains problemID unconditionally and publishes the result.
func (s *Scheduler) Rebuild(ctx context.Context, problemID string) (*model.Record, error) {
	mu := s.lock(problemID)
	mu.Lock()
	defer mu.Unlock()
	return s.rebuild(ctx, problemID)
}

func (s *Scheduler) lock(problemID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(problemID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *Scheduler) rebuild(ctx context.Context, problemID string) (*model.Record, error) {
	start := time.Now()
	log := s.logger.With(logger.String("problem_id", problemID))

	rec, err := s.train(ctx, problemID, log)
	if err == nil {
		err = s.store.Publish(ctx, rec)
	}
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordRebuild(OutcomeFailed, elapsed)
		metrics.RecordErrorByComponent("scheduler", rebuildErrorType(err))
		log.Error(ctx, "rebuild abandoned, previous model kept", logger.Error(err))
		return nil, fmt.Errorf("rebuild %s: %w", problemID, err)
	}

	metrics.RecordRebuild(OutcomePublished, elapsed)
	log.Info(ctx, "model rebuilt",
		logger.Int("training_count", rec.TrainingCount),
		logger.Int("useful_features", rec.Progress.UsefulCount()),
		logger.Bool("classifier", rec.Classifier != nil),
		logger.Float64("duration_ms", elapsed),
	)
	return rec, nil
}

func (s *Scheduler) train(ctx context.Context, problemID string, log logger.Logger) (*model.Record, error) {
	subs, err := s.dataset.CorrectSubmissions(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("load correct submissions: %w", err)
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("%w: no correct submissions", progress.ErrInsufficientData)
	}

	language := s.dataset.Language(problemID)
	norm, known := normalize.For(language)
	if !known {
		log.Warn(ctx, "unknown language, code left unnormalized", logger.String("language", language))
	}

	texts := make([]string, len(subs))
	for i, sub := range subs {
		texts[i] = norm.Normalize(sub.Code)
	}

	vec := vectorize.New(vectorize.WithNgramRange(s.ngramMin, s.ngramMax))
	if err := vec.Fit(texts); err != nil {
		return nil, fmt.Errorf("%w: %v", progress.ErrInsufficientData, err)
	}
	rows := vec.TransformAll(texts)

	var baseline []float64
	if starter, ok := s.dataset.ReferenceCode(problemID); ok {
		baseline = vec.Transform(norm.Normalize(starter))
	}

	opts := []progress.Option{
		progress.WithVocabulary(vec.Vocabulary()),
		progress.WithMinFeatureProportion(s.minFeatureProportion),
		progress.WithMaxScorePercentile(s.maxScorePercentile),
	}
	if def, ok := s.dataset.SubgoalDefinitions(problemID); ok {
		opts = append(opts, progress.WithSubgoalMasks(subgoal.Masks(*def, vec.Vocabulary())))
	}

	pm, err := progress.Fit(rows, baseline, opts...)
	if err != nil {
		return nil, fmt.Errorf("fit progress model: %w", err)
	}
	if pm.Degenerate {
		metrics.RecordDegenerateRange()
		for _, w := range pm.Warnings {
			log.Warn(ctx, w)
		}
	}

	rec := &model.Record{
		ProblemID:     problemID,
		Progress:      pm,
		TrainingCount: len(subs),
		Language:      language,
		NgramMin:      s.ngramMin,
		NgramMax:      s.ngramMax,
		TrainedAt:     s.now(),
	}

	if s.classifierEnabled {
		cm, err := s.trainClassifier(ctx, problemID, norm)
		if err != nil {
			return nil, err
		}
		rec.Classifier = cm
	}
	return rec, nil
}

func (s *Scheduler) trainClassifier(ctx context.Context, problemID string, norm normalize.Normalizer) (*classifier.Model, error) {
	labeled, err := s.dataset.LabeledSubmissions(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("load labeled submissions: %w", err)
	}
	texts := make([]string, len(labeled))
	labels := make([]bool, len(labeled))
	for i, sub := range labeled {
		texts[i] = norm.Normalize(sub.Code)
		labels[i] = sub.Correct
	}

	vec := vectorize.New(vectorize.WithNgramRange(s.ngramMin, s.ngramMax))
	if err := vec.Fit(texts); err != nil {
		return nil, fmt.Errorf("fit classifier vocabulary: %w", err)
	}
	cm, err := classifier.Fit(vec.TransformAll(texts), labels, vec.Vocabulary())
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}
	return cm, nil
}

func rebuildErrorType(err error) string {
	switch {
	case errors.Is(err, progress.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, repository.ErrPersistence):
		return "persistence"
	default:
		return "rebuild_error"
	}
}
