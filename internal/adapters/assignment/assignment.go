// Package assignment persists sticky experiment-condition assignments.
//
// Both stores resolve a race between two first-time writers for the same
// subject to a single winner: the first write is kept and every caller gets
// it back.
package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/stride/internal/adapters/sqlitedb"
	"github.com/okian/stride/pkg/metrics"
)

// ErrPersistence is returned when the backing store fails.
var ErrPersistence = errors.New("assignment persistence failure")

type key struct {
	scope   string
	subject string
}

// MemoryStore keeps assignments in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[key]bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[key]bool)}
}

// Get returns the stored assignment, if any.
func (s *MemoryStore) Get(_ context.Context, scope, subject string) (bool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[key{scope, subject}]
	return v, ok, nil
}

// PutIfAbsent stores intervention unless a value exists and returns the
// stored value.
func (s *MemoryStore) PutIfAbsent(_ context.Context, scope, subject string, intervention bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{scope, subject}
	if v, ok := s.byID[k]; ok {
		return v, nil
	}
	s.byID[k] = intervention
	return intervention, nil
}

// Len returns the number of stored assignments.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// SQLiteStore keeps assignments in the assignments table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an opened database (see sqlitedb.Open).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get returns the stored assignment, if any.
func (s *SQLiteStore) Get(ctx context.Context, scope, subject string) (bool, bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("assignment_get", float64(time.Since(start).Milliseconds())) }()

	var v int
	err := s.db.QueryRowContext(ctx,
		`SELECT is_intervention FROM assignments WHERE scope = ? AND subject_id = ?`, scope, subject,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("%w: get %s/%s: %v", ErrPersistence, scope, subject, err)
	}
	return v != 0, true, nil
}

// PutIfAbsent inserts intervention unless a row exists, then reads back
// the persisted row.
func (s *SQLiteStore) PutIfAbsent(ctx context.Context, scope, subject string, intervention bool) (bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("assignment_put", float64(time.Since(start).Milliseconds())) }()

	v := 0
	if intervention {
		v = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assignments (scope, subject_id, is_intervention, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope, subject_id) DO NOTHING`,
		scope, subject, v, time.Now().UTC().Format(sqlitedb.TimeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("%w: put %s/%s: %v", ErrPersistence, scope, subject, err)
	}

	winner, ok, err := s.Get(ctx, scope, subject)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%w: %s/%s missing after insert", ErrPersistence, scope, subject)
	}
	return winner, nil
}
