package eventlog

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/stride/internal/domain/model"
)

// MemoryLog keeps events in process memory.
type MemoryLog struct {
	mu        sync.RWMutex
	ids       map[string]struct{}
	byProblem map[string][]model.Event
	total     int
}

// NewMemoryLog returns an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		ids:       make(map[string]struct{}),
		byProblem: make(map[string][]model.Event),
	}
}

// Append implements Log.
func (l *MemoryLog) Append(_ context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events are values
	if e.EventID == "" {
		return fmt.Errorf("%w: missing event id", ErrInvalidEvent)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.ids[e.EventID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, e.EventID)
	}
	l.ids[e.EventID] = struct{}{}
	l.byProblem[e.ProblemID] = append(l.byProblem[e.ProblemID], e)
	l.total++
	return nil
}

// DistinctCorrectCount implements Log.
func (l *MemoryLog) DistinctCorrectCount(ctx context.Context, problemID string) (int, error) {
	subs, err := l.CorrectSubmissions(ctx, problemID)
	if err != nil {
		return 0, err
	}
	return len(subs), nil
}

// CorrectSubmissions implements Log.
func (l *MemoryLog) CorrectSubmissions(_ context.Context, problemID string) ([]model.Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []model.Submission
	for _, e := range l.byProblem[problemID] {
		if !e.Correct() {
			continue
		}
		if _, ok := seen[e.Code]; ok {
			continue
		}
		seen[e.Code] = struct{}{}
		out = append(out, model.Submission{Code: e.Code, Correct: true, Time: e.ServerTimestamp})
	}
	return out, nil
}

// LabeledSubmissions implements Log.
func (l *MemoryLog) LabeledSubmissions(_ context.Context, problemID string) ([]model.Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.Submission
	for _, e := range l.byProblem[problemID] {
		if !e.Labeled() {
			continue
		}
		out = append(out, model.Submission{Code: e.Code, Correct: e.Correct(), Time: e.ServerTimestamp})
	}
	return out, nil
}

// Len implements Log.
func (l *MemoryLog) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total, nil
}
