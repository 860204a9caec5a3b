// Package dedupe tracks keys that already have pending work.
//
// The rebuild path records a problem id when it queues a job and releases
// it when a worker picks the job up, so a burst of events for one problem
// queues a single rebuild.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records keys to ensure at most one pending job per key.
type Deduper interface {
	// SeenAndRecord atomically checks if id was recorded and records it if not.
	// Returns true if id was already recorded, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord releases id so it can be recorded again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	maxSize int // 0 or negative = unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	return d
}

// SeenAndRecord reports whether id is already recorded. When the set is
// full a new id is not recorded and false is returned, so callers never
// lose work; they may only queue it twice.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		return false
	}
	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord removes id from the set.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

// Size returns the current number of recorded ids.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
