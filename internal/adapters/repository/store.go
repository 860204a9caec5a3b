// Package repository stores the published model record of each problem.
//
// A record is replaced wholesale by Publish. Readers see either the previous
// record or the new one, never a mix, and a failed Publish leaves the
// previous record in place.
package repository

import (
	"context"

	"github.com/okian/stride/internal/domain/model"
)

// Store provides read/write access to published model records.
type Store interface {
	// Get returns the published record for a problem.
	// Returns ErrNotFound if no model was published yet.
	Get(ctx context.Context, problemID string) (*model.Record, error)

	// Publish atomically replaces the record for rec.ProblemID.
	Publish(ctx context.Context, rec *model.Record) error

	// TrainingCount returns the watermark of the published record.
	// ok is false when no record exists.
	TrainingCount(ctx context.Context, problemID string) (count int, ok bool, err error)

	// Count returns the number of problems with a published record.
	Count(ctx context.Context) int
}
