package scheduler

import (
	"github.com/viant/jobgate/metrics"
	"github.com/viant/jobgate/progress"
	"github.com/viant/jobgate/service/dao/job/memory"
	"github.com/viant/jobgate/service/event"
	"github.com/viant/jobgate/service/lock"
	"go.uber.org/zap"
)

// Option customises the scheduler
type Option func(*Service)

// WithConfig sets the configuration
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithParallel sets the maximum number of running locking jobs
func WithParallel(parallel int) Option {
	return func(s *Service) {
		s.config.Parallel = parallel
	}
}

// WithRegistry sets the job registry
func WithRegistry(registry *memory.Service) Option {
	return func(s *Service) {
		s.registry = registry
	}
}

// WithLockManager sets the lock manager
func WithLockManager(locks *lock.Manager) Option {
	return func(s *Service) {
		s.locks = locks
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEvents sets the lifecycle event service
func WithEvents(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}

// WithProgress sets the counters tracker
func WithProgress(tracker *progress.Progress) Option {
	return func(s *Service) {
		s.progress = tracker
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}
