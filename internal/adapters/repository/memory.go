package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/logger"
	"github.com/okian/stride/pkg/metrics"
)

// snapshot is an immutable view of all published records.
type snapshot map[string]*model.Record

// MemoryStore is an in-memory Store. Reads load a snapshot pointer without
// locking; Publish copies the snapshot, replaces one entry and swaps the
// pointer.
type MemoryStore struct {
	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[snapshot]
	opts options
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	empty := snapshot{}
	s.snap.Store(&empty)
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, problemID string) (*model.Record, error) {
	rec, ok := (*s.snap.Load())[problemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, problemID)
	}
	return rec, nil
}

// Publish implements Store.
func (s *MemoryStore) Publish(ctx context.Context, rec *model.Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	rec.Prepare()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.snap.Load()
	next := make(snapshot, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[rec.ProblemID] = rec
	s.snap.Store(&next)

	metrics.UpdateModelsPublished(len(next))
	s.opts.logger.Debug(ctx, "model published",
		logger.String("problem_id", rec.ProblemID),
		logger.Int("training_count", rec.TrainingCount),
	)
	return nil
}

// TrainingCount implements Store.
func (s *MemoryStore) TrainingCount(_ context.Context, problemID string) (int, bool, error) {
	rec, ok := (*s.snap.Load())[problemID]
	if !ok {
		return 0, false, nil
	}
	return rec.TrainingCount, true, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	return len(*s.snap.Load())
}

func validate(rec *model.Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if rec.ProblemID == "" {
		return fmt.Errorf("%w: missing problem id", ErrInvalidRecord)
	}
	if rec.Progress == nil {
		return fmt.Errorf("%w: %s: missing progress model", ErrInvalidRecord, rec.ProblemID)
	}
	return nil
}
