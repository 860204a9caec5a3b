// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// Condition policies understood by the assigner.
const (
	PolicyAllControl      = "all_control"
	PolicyAllIntervention = "all_intervention"
	PolicyRandomStudent   = "random_student"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DatabasePath points at the SQLite file. Empty keeps every store in memory.
	DatabasePath string `koanf:"database_path"`

	// ProblemsFile is a YAML catalog of starter code and subgoal highlights.
	ProblemsFile string `koanf:"problems_file"`

	// QueueSize bounds the pending rebuild queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of rebuild workers.
	WorkerCount int `koanf:"worker_count"`

	// MinCorrectCount is the number of distinct correct submissions needed
	// before the first model is trained.
	MinCorrectCount int `koanf:"min_correct_count"`

	// RebuildIncrement is how many new distinct correct submissions trigger a retrain.
	RebuildIncrement int `koanf:"rebuild_increment"`

	MinFeatureProportion float64 `koanf:"min_feature_proportion"`
	MaxScorePercentile   float64 `koanf:"max_score_percentile"`

	// ClassifierEnabled trains the correctness classifier alongside the progress model.
	ClassifierEnabled bool `koanf:"classifier_enabled"`

	NgramMin int `koanf:"ngram_min"`
	NgramMax int `koanf:"ngram_max"`

	// ConditionPolicy is one of all_control, all_intervention, random_student.
	ConditionPolicy      string  `koanf:"condition_policy"`
	ConditionProbability float64 `koanf:"condition_probability"`
	ConditionScope       string  `koanf:"condition_scope"`

	// ConditionOverrides maps a problem id to "control" or "intervention".
	ConditionOverrides map[string]string `koanf:"condition_overrides"`

	// ConditionInverted lists problems whose random assignment is flipped.
	ConditionInverted []string `koanf:"condition_inverted"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		QueueSize:            1_000,
		WorkerCount:          runtime.NumCPU(),
		MinCorrectCount:      10,
		RebuildIncrement:     5,
		MinFeatureProportion: 0.5,
		MaxScorePercentile:   0.25,
		ClassifierEnabled:    true,
		NgramMin:             1,
		NgramMax:             3,
		ConditionPolicy:      PolicyAllIntervention,
		ConditionProbability: 0.5,
		ConditionScope:       "default",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.MinCorrectCount < 1:
		return fmt.Errorf("%w: min_correct_count must be positive", ErrInvalidConfig)
	case c.RebuildIncrement < 1:
		return fmt.Errorf("%w: rebuild_increment must be positive", ErrInvalidConfig)
	case c.MinFeatureProportion < 0 || c.MinFeatureProportion >= 1:
		return fmt.Errorf("%w: min_feature_proportion must be in [0,1)", ErrInvalidConfig)
	case c.MaxScorePercentile < 0 || c.MaxScorePercentile > 1:
		return fmt.Errorf("%w: max_score_percentile must be in [0,1]", ErrInvalidConfig)
	case c.NgramMin < 1 || c.NgramMax < c.NgramMin:
		return fmt.Errorf("%w: ngram range [%d,%d] is invalid", ErrInvalidConfig, c.NgramMin, c.NgramMax)
	case c.ConditionProbability < 0 || c.ConditionProbability > 1:
		return fmt.Errorf("%w: condition_probability must be in [0,1]", ErrInvalidConfig)
	}
	for problem, v := range c.ConditionOverrides {
		switch strings.ToLower(v) {
		case "control", "intervention":
		default:
			return fmt.Errorf("%w: condition override %q for %s", ErrInvalidConfig, v, problem)
		}
	}
	return nil
}
