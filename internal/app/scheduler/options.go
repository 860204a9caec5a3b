package scheduler

import (
	"time"

	"github.com/okian/stride/pkg/logger"
)

// Default rebuild policy values.
const (
	DefaultMinCorrectCount = 10
	DefaultIncrement       = 5
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithMinCorrectCount sets the number of distinct correct submissions
// needed before the first model is built.
func WithMinCorrectCount(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.minCorrect = n
		}
	}
}

// WithIncrement sets how many new distinct correct submissions trigger a
// retrain once a model exists.
func WithIncrement(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.increment = n
		}
	}
}

// WithMinFeatureProportion sets the progress fit presence threshold.
func WithMinFeatureProportion(v float64) Option {
	return func(s *Scheduler) { s.minFeatureProportion = v }
}

// WithMaxScorePercentile sets the progress fit score percentile.
func WithMaxScorePercentile(v float64) Option {
	return func(s *Scheduler) { s.maxScorePercentile = v }
}

// WithClassifier enables or disables fitting the correctness classifier.
func WithClassifier(enabled bool) Option {
	return func(s *Scheduler) { s.classifierEnabled = enabled }
}

// WithNgramRange sets the vectorizer n-gram bounds.
func WithNgramRange(minN, maxN int) Option {
	return func(s *Scheduler) {
		if minN >= 1 && maxN >= minN {
			s.ngramMin, s.ngramMax = minN, maxN
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now for TrainedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}
