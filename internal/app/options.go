package service

import (
	"time"

	"github.com/okian/stride/internal/adapters/catalog"
	"github.com/okian/stride/internal/adapters/eventlog"
	"github.com/okian/stride/internal/adapters/repository"
	"github.com/okian/stride/internal/app/scheduler"
	"github.com/okian/stride/internal/domain/condition"
	"github.com/okian/stride/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of rebuild workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the rebuild queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithModelStore sets the store models are published to.
func WithModelStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEventLog sets the event log.
func WithEventLog(l eventlog.Log) Option {
	return func(s *Service) {
		if l != nil {
			s.events = l
		}
	}
}

// WithCatalog sets the problem catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithAssigner sets the condition assigner that gates feedback.
func WithAssigner(a *condition.Assigner) Option {
	return func(s *Service) {
		if a != nil {
			s.assigner = a
		}
	}
}

// WithSchedulerOptions passes options through to the rebuild scheduler.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(s *Service) {
		s.schedulerOpts = append(s.schedulerOpts, opts...)
	}
}

// WithClock overrides time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
