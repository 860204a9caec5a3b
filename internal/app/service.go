// Package service is the facade the HTTP API talks to. It serves feedback
// from published models, logs events, and queues model rebuilds.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/stride/internal/adapters/assignment"
	"github.com/okian/stride/internal/adapters/catalog"
	"github.com/okian/stride/internal/adapters/eventlog"
	eventqueue "github.com/okian/stride/internal/adapters/mq/queue"
	workerpool "github.com/okian/stride/internal/adapters/mq/worker"
	"github.com/okian/stride/internal/adapters/repository"
	"github.com/okian/stride/internal/app/scheduler"
	"github.com/okian/stride/internal/domain/condition"
	"github.com/okian/stride/internal/domain/dedupe"
	"github.com/okian/stride/pkg/logger"
	"github.com/okian/stride/pkg/metrics"
)

// Service implements the API dependencies of the feedback system.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	events    eventlog.Log
	catalog   *catalog.Catalog
	assigner  *condition.Assigner
	scheduler *scheduler.Scheduler
	pending   dedupe.Deduper

	queue *eventqueue.InMemoryQueue
	pool  *workerpool.Pool

	workerCount   int
	queueSize     int
	schedulerOpts []scheduler.Option

	started bool
	cancel  context.CancelFunc

	now    func() time.Time
	logger logger.Logger
}

// New constructs a Service. Unset collaborators default to in-memory
// stores, an empty catalog and the all_intervention policy.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1000,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.events == nil {
		s.events = eventlog.NewMemoryLog()
	}
	if s.catalog == nil {
		s.catalog = catalog.New()
	}
	if s.assigner == nil {
		// all_intervention always validates.
		s.assigner, _ = condition.NewAssigner(condition.Settings{
			Scope:  "default",
			Policy: condition.AllIntervention,
		}, assignment.NewMemoryStore())
	}

	s.pending = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.queueSize))
	s.scheduler = scheduler.New(
		catalog.NewDataset(s.catalog, s.events),
		s.store,
		append([]scheduler.Option{scheduler.WithLogger(s.logger.Named("scheduler"))}, s.schedulerOpts...)...,
	)
	return s
}

// Start launches the rebuild workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting feedback service...")

	// Workers outlive the caller's context and stop with Stop.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, workerpool.HandlerFunc(s.handleRebuild))
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "feedback service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("problems", s.catalog.Len()),
	)
	return nil
}

// Stop drains queued rebuilds and shuts the workers down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping feedback service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "feedback service stopped")
}

// scheduleRebuild queues a due-check for problemID unless one is pending.
// Without running workers the check runs inline. Errors are logged only.
func (s *Service) scheduleRebuild(ctx context.Context, problemID string) {
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()

	if !started {
		if _, err := s.scheduler.MaybeRebuild(ctx, problemID); err != nil {
			s.logger.Warn(ctx, "inline rebuild failed", logger.String("problem_id", problemID), logger.Error(err))
		}
		return
	}

	if s.pending.SeenAndRecord(ctx, problemID) {
		return
	}
	if err := q.Enqueue(ctx, eventqueue.Job{ProblemID: problemID}); err != nil {
		s.pending.Unrecord(ctx, problemID)
		s.logger.Warn(ctx, "rebuild not queued", logger.String("problem_id", problemID), logger.Error(err))
	}
}

// handleRebuild is the worker handler. The pending mark is released before
// the check so events arriving during a rebuild queue a follow-up.
func (s *Service) handleRebuild(ctx context.Context, j eventqueue.Job) error {
	s.pending.Unrecord(ctx, j.ProblemID)
	_, err := s.scheduler.MaybeRebuild(ctx, j.ProblemID)
	return err
}

// Rebuild retrains problemID now, regardless of the watermark.
func (s *Service) Rebuild(ctx context.Context, problemID string) error {
	if problemID == "" {
		return fmt.Errorf("%w: problem id is required", ErrInvalidRequest)
	}
	_, err := s.scheduler.Rebuild(ctx, problemID)
	return err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"problems":    s.catalog.Len(),
		"models":      s.store.Count(ctx),
		"policy":      string(s.assigner.Settings().Policy),
	}
	if n, err := s.events.Len(ctx); err == nil {
		stats["events"] = n
	}

	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["pendingRebuilds"] = s.pending.Size()
		stats["rebuildsProcessed"] = s.pool.Processed()
		stats["rebuildsFailed"] = s.pool.Failed()
	}
	return stats
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

func recordError(component string, err error) {
	kind := "internal"
	switch {
	case errors.Is(err, repository.ErrPersistence),
		errors.Is(err, eventlog.ErrPersistence),
		errors.Is(err, assignment.ErrPersistence):
		kind = "persistence"
	case errors.Is(err, condition.ErrConfiguration):
		kind = "configuration"
	}
	metrics.RecordErrorByComponent(component, kind)
}
