// Package eventlog is the append-only log of learner events.
//
// Only submissions feed training. A submission is correct when its score is
// at least 1 and unlabeled when it has no score. Distinctness for training
// is by code text.
package eventlog

import (
	"context"

	"github.com/okian/stride/internal/domain/model"
)

// Log stores events and answers the per-problem training queries.
type Log interface {
	// Append stores e. A repeated EventID returns ErrDuplicateEvent and
	// leaves the log unchanged.
	Append(ctx context.Context, e model.Event) error

	// DistinctCorrectCount counts distinct correct code texts for a problem.
	DistinctCorrectCount(ctx context.Context, problemID string) (int, error)

	// CorrectSubmissions returns each distinct correct code text once, with
	// the time it was first logged, in log order.
	CorrectSubmissions(ctx context.Context, problemID string) ([]model.Submission, error)

	// LabeledSubmissions returns every scored submission in log order.
	LabeledSubmissions(ctx context.Context, problemID string) ([]model.Submission, error)

	// Len returns the number of stored events.
	Len(ctx context.Context) (int, error)
}
