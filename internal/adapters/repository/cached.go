package repository

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/stride/internal/domain/model"
)

// CachedStore is a read-through cache in front of another Store. Cached
// records are replaced only by Publish; a miss fills the cache only when no
// newer record was published meanwhile.
type CachedStore struct {
	inner Store
	mu    sync.Mutex
	cache atomic.Pointer[snapshot]
}

// NewCachedStore wraps inner.
func NewCachedStore(inner Store) *CachedStore {
	c := &CachedStore{inner: inner}
	empty := snapshot{}
	c.cache.Store(&empty)
	return c
}

// Get implements Store.
func (c *CachedStore) Get(ctx context.Context, problemID string) (*model.Record, error) {
	if rec, ok := (*c.cache.Load())[problemID]; ok {
		return rec, nil
	}
	rec, err := c.inner.Get(ctx, problemID)
	if err != nil {
		return nil, err
	}
	return c.fill(rec), nil
}

// fill caches rec unless Publish got there first, and returns the cached value.
func (c *CachedStore) fill(rec *model.Record) *model.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := *c.cache.Load()
	if existing, ok := cur[rec.ProblemID]; ok {
		return existing
	}
	c.swap(cur, rec)
	return rec
}

// Publish implements Store. The cache is updated only after inner succeeds.
func (c *CachedStore) Publish(ctx context.Context, rec *model.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.inner.Publish(ctx, rec); err != nil {
		return err
	}
	c.swap(*c.cache.Load(), rec)
	return nil
}

func (c *CachedStore) swap(cur snapshot, rec *model.Record) {
	next := make(snapshot, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[rec.ProblemID] = rec
	c.cache.Store(&next)
}

// TrainingCount implements Store.
func (c *CachedStore) TrainingCount(ctx context.Context, problemID string) (int, bool, error) {
	if rec, ok := (*c.cache.Load())[problemID]; ok {
		return rec.TrainingCount, true, nil
	}
	return c.inner.TrainingCount(ctx, problemID)
}

// Count implements Store.
func (c *CachedStore) Count(ctx context.Context) int {
	return c.inner.Count(ctx)
}
