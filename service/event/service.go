// Package event delivers job lifecycle events (queued, started, finished,
// failed, stopped) to a listener through an in-memory queue, so observers never
// run inside the scheduler's critical section.
package event

import (
	"context"
	"sync"

	"github.com/viant/jobgate/runtime/job"
	"github.com/viant/jobgate/service/messaging/memory"
	"go.uber.org/zap"
)

// Service publishes job details to a single listener
type Service struct {
	queue     *memory.Queue[Event[*job.Detail]]
	publisher *Publisher[*job.Detail]
	listener  *Listener[*job.Detail]
	logger    *zap.Logger
	mux       sync.RWMutex
	closed    bool
}

// Option customises the service
type Option func(s *Service)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a service delivering events to handler. Events the handler
// rejects are not redelivered; they go to the dead letter list when enabled.
func New(ctx context.Context, config memory.Config, handler Handler[*job.Detail], options ...Option) *Service {
	ret := &Service{logger: zap.NewNop()}
	for _, option := range options {
		option(ret)
	}
	// a redelivered event would overtake later events of the same job
	config.MaxRetries = 0
	ret.queue = memory.NewQueue[Event[*job.Detail]](config)
	ret.publisher = NewPublisher[*job.Detail](ret.queue)
	ret.listener = NewListener[*job.Detail](ret.queue, handler, ret.logger)
	ret.listener.Start(ctx)
	return ret
}

// Publish emits an event for the job; failures are logged, never returned,
// since observers must not affect job execution.
func (s *Service) Publish(ctx context.Context, eventType Type, detail *job.Detail) {
	if s == nil || detail == nil {
		return
	}
	s.mux.RLock()
	defer s.mux.RUnlock()
	if s.closed {
		return
	}
	eCtx := &Context{
		JobID:       detail.ID,
		SessionID:   detail.SessionID,
		Kind:        string(detail.Kind),
		EventType:   eventType,
		Locks:       detail.Locks,
		TimeTakenMs: int(detail.Duration.Milliseconds()),
	}
	if err := s.publisher.Publish(ctx, NewEvent(eCtx, detail)); err != nil {
		s.logger.Warn("failed to publish job event",
			zap.String("job.id", detail.ID),
			zap.String("event.type", string(eventType)),
			zap.Error(err))
	}
}

// Rejected returns number of events the handler failed to process
func (s *Service) Rejected() int {
	return s.queue.DLQSize()
}

// Close stops the listener and the queue
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	s.mux.Lock()
	if s.closed {
		s.mux.Unlock()
		return nil
	}
	s.closed = true
	s.mux.Unlock()
	s.listener.Stop()
	return s.queue.Close()
}
