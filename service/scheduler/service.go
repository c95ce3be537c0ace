package scheduler

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"github.com/viant/jobgate/internal/clock"
	"github.com/viant/jobgate/metrics"
	"github.com/viant/jobgate/progress"
	"github.com/viant/jobgate/runtime/job"
	"github.com/viant/jobgate/service/dao/job/memory"
	"github.com/viant/jobgate/service/event"
	"github.com/viant/jobgate/service/lock"
	"github.com/viant/jobgate/tracing"
	"go.uber.org/zap"
)

// Config represents scheduler configuration
type Config struct {
	// Parallel is the maximum number of concurrently running locking jobs
	Parallel int `json:"parallel" yaml:"parallel"`
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{Parallel: 8}
}

// Service admits, runs and terminates jobs
type Service struct {
	config   Config
	registry *memory.Service
	locks    *lock.Manager
	events   *event.Service
	progress *progress.Progress
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mux     sync.Mutex
	running int
	queued  []*entry
	closed  bool
	wg      sync.WaitGroup
}

// entry is a job waiting for or holding admission. announced is closed once
// the queued event was published so later events of the job follow it.
type entry struct {
	job       *job.Job
	ctx       context.Context
	announced chan struct{}
}

func newEntry(ctx context.Context, j *job.Job) *entry {
	return &entry{job: j, ctx: ctx, announced: make(chan struct{})}
}

// New creates a scheduler
func New(options ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.config.Parallel < 1 {
		return nil, fmt.Errorf("invalid parallel: %v, expected at least 1", s.config.Parallel)
	}
	if s.registry == nil {
		registry, err := memory.New()
		if err != nil {
			return nil, err
		}
		s.registry = registry
	}
	if s.locks == nil {
		s.locks = lock.New()
	}
	if s.progress == nil {
		s.progress = progress.New()
	}
	return s, nil
}

// Registry returns the job registry
func (s *Service) Registry() *memory.Service {
	return s.registry
}

// Progress returns the counters tracker
func (s *Service) Progress() *progress.Progress {
	return s.progress
}

// Config returns the configuration
func (s *Service) Config() Config {
	return s.config
}

// Submit registers a job for unit and either starts it or queues it. Errors
// returned here are admission errors: the job was never registered.
func (s *Service) Submit(ctx context.Context, sessionID string, unit job.Unit) (*job.Job, error) {
	if unit == nil {
		return nil, fmt.Errorf("unit was nil")
	}
	set, err := s.locks.Declare(unit)
	if err != nil {
		return nil, err
	}
	runCtx := context.WithoutCancel(ctx)

	s.mux.Lock()
	if s.closed {
		s.mux.Unlock()
		return nil, job.ErrClosed
	}
	j := job.New(s.registry.NextID(), sessionID, unit, set, clock.Now())
	if err = s.registry.Save(ctx, j); err != nil {
		s.mux.Unlock()
		return nil, fmt.Errorf("failed to register job: %w", err)
	}
	s.progress.Update(progress.Delta{Submitted: 1, Queued: 1})
	e := newEntry(runCtx, j)
	if !j.IsLocking() {
		s.startLocked(e)
	} else {
		s.queued = append(s.queued, e)
		s.dispatchLocked()
	}
	state := j.State()
	s.mux.Unlock()

	s.logger.Debug("job submitted",
		zap.String("job.id", j.ID),
		zap.String("job.kind", string(j.Kind)),
		zap.String("job.locks", j.Locks.String()),
		zap.String("job.state", string(state)))
	s.publish(ctx, event.TypeQueued, j.Detail(j.CreatedAt))
	close(e.announced)
	return j, nil
}

// dispatchLocked starts waiting jobs in arrival order while a slot is free and
// the lock manager grants their sets. Caller must hold s.mux.
func (s *Service) dispatchLocked() {
	for i := 0; i < len(s.queued); {
		if s.running >= s.config.Parallel {
			break
		}
		candidate := s.queued[i]
		if !s.locks.Acquire(candidate.job.ID, candidate.job.Locks) {
			i++
			continue
		}
		s.queued = slices.Delete(s.queued, i, i+1)
		s.startLocked(candidate)
	}
}

// startLocked moves a job to running and starts its goroutine. Caller must
// hold s.mux, and locks of a locking job must already be granted.
func (s *Service) startLocked(e *entry) {
	j := e.job
	now := clock.Now()
	if err := j.Start(now); err != nil {
		panic(errors.Wrapf(err, "scheduler: failed to start %s", j.ID))
	}
	delta := progress.Delta{Queued: -1, Running: 1}
	if j.IsLocking() {
		s.running++
		delta.Locking = 1
	}
	s.progress.Update(delta)
	s.metrics.ObserveAdmission(now.Sub(j.CreatedAt))
	s.wg.Add(1)
	go s.run(e)
}

func (s *Service) run(e *entry) {
	defer s.wg.Done()
	j := e.job
	<-e.announced
	s.publish(e.ctx, event.TypeStarted, j.Detail(*j.StartedAt()))
	ctx, span := tracing.StartSpan(e.ctx, "job.run")
	span.WithAttributes(map[string]string{
		"job.id":      j.ID,
		"job.kind":    string(j.Kind),
		"job.locking": fmt.Sprintf("%v", j.IsLocking()),
		"job.locks":   j.Locks.String(),
	})
	outcome := s.evaluate(ctx, j)
	if outcome.State == job.StateStopped {
		span.AddEvent("stop observed")
	}
	span.WithAttributes(map[string]string{"job.state": string(outcome.State)})
	var spanErr error
	if outcome.State == job.StateFailed {
		spanErr = outcome.Err
	}
	tracing.EndSpan(span, spanErr)
	s.terminate(ctx, j, outcome)
}

// evaluate runs the unit. A stopped token wins over whatever the unit
// returned, and a panic becomes an evaluation error.
func (s *Service) evaluate(ctx context.Context, j *job.Job) (outcome *job.Outcome) {
	jobCtx, cancel := job.NewContext(ctx, j)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", zap.String("job.id", j.ID), zap.Any("panic", r))
			outcome = job.Failed(j.ID, fmt.Errorf("panic: %v", r))
		}
		if j.Token().Stopped() {
			outcome = job.Stopped()
		}
	}()
	value, err := j.Unit().Run(jobCtx)
	if err != nil {
		return job.Failed(j.ID, err)
	}
	return job.Finished(value)
}

// terminate releases locks and slot, removes the job from the registry and
// wakes waiters, all under s.mux.
func (s *Service) terminate(ctx context.Context, j *job.Job, outcome *job.Outcome) {
	s.mux.Lock()
	if j.IsLocking() {
		s.locks.Release(j.ID)
		s.running--
	}
	now := clock.Now()
	if _, err := s.registry.Terminate(ctx, j.ID, outcome, now); err != nil {
		s.mux.Unlock()
		panic(errors.Wrapf(err, "scheduler: failed to terminate %s", j.ID))
	}
	delta := terminalDelta(outcome.State)
	delta.Running = -1
	if j.IsLocking() {
		delta.Locking = -1
	}
	s.progress.Update(delta)
	detail := j.Detail(now)
	s.dispatchLocked()
	s.mux.Unlock()

	s.metrics.ObserveRun(string(outcome.State), detail.Duration)
	s.logger.Debug("job terminated",
		zap.String("job.id", j.ID),
		zap.String("job.state", string(outcome.State)),
		zap.Duration("job.duration", detail.Duration),
		zap.Error(outcome.Err))
	s.publish(ctx, eventType(outcome.State), detail)
}

// Stop requests the job to stop. A queued job becomes stopped at once, a
// running job has its token set and stops at its next safepoint. Stopping a
// terminal job is a no-op; an id never issued returns job.ErrNotFound.
func (s *Service) Stop(ctx context.Context, id string) error {
	s.mux.Lock()
	j, err := s.registry.Load(ctx, id)
	if err != nil {
		s.mux.Unlock()
		if s.registry.Issued(id) {
			return nil
		}
		return job.NotFoundError(id)
	}
	if j.State() == job.StateRunning {
		s.mux.Unlock()
		if j.Token().Stop() {
			s.logger.Info("job stop requested", zap.String("job.id", id))
		}
		return nil
	}
	e := s.lookupQueued(j)
	if e == nil {
		s.mux.Unlock()
		panic(errors.Errorf("scheduler: queued job %s is not waiting", id))
	}
	detail := s.stopQueuedLocked(ctx, e)
	s.mux.Unlock()

	s.logger.Info("queued job stopped", zap.String("job.id", id))
	<-e.announced
	s.publish(ctx, event.TypeStopped, detail)
	return nil
}

func (s *Service) lookupQueued(j *job.Job) *entry {
	for _, e := range s.queued {
		if e.job == j {
			return e
		}
	}
	return nil
}

// stopQueuedLocked withdraws a waiting job and terminates it as stopped.
// Caller must hold s.mux.
func (s *Service) stopQueuedLocked(ctx context.Context, e *entry) *job.Detail {
	j := e.job
	s.queued = slices.DeleteFunc(s.queued, func(candidate *entry) bool { return candidate == e })
	s.locks.Cancel(j.ID)
	j.Token().Stop()
	now := clock.Now()
	if _, err := s.registry.Terminate(ctx, j.ID, job.Stopped(), now); err != nil {
		panic(errors.Wrapf(err, "scheduler: failed to stop queued %s", j.ID))
	}
	s.progress.Update(progress.Delta{Queued: -1, Stopped: 1})
	if !s.closed {
		s.dispatchLocked()
	}
	return j.Detail(now)
}

// Waiting returns ids of queued jobs in arrival order
func (s *Service) Waiting() []string {
	s.mux.Lock()
	defer s.mux.Unlock()
	ret := make([]string, 0, len(s.queued))
	for _, e := range s.queued {
		ret = append(ret, e.job.ID)
	}
	return ret
}

// Running returns number of running locking jobs
func (s *Service) Running() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.running
}

// Shutdown rejects further submissions, stops every job and waits for running
// jobs to terminate or ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mux.Lock()
	if s.closed {
		s.mux.Unlock()
		return s.await(ctx)
	}
	s.closed = true
	stopped := slices.Clone(s.queued)
	details := make([]*job.Detail, 0, len(stopped))
	for len(s.queued) > 0 {
		details = append(details, s.stopQueuedLocked(ctx, s.queued[0]))
	}
	running, err := s.registry.List(ctx)
	s.mux.Unlock()
	if err != nil {
		return err
	}
	for _, j := range running {
		j.Token().Stop()
	}
	s.logger.Info("scheduler shutting down",
		zap.Int("jobs.stopped", len(details)),
		zap.Int("jobs.running", len(running)))
	for i, e := range stopped {
		<-e.announced
		s.publish(ctx, event.TypeStopped, details[i])
	}
	return s.await(ctx)
}

func (s *Service) await(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) publish(ctx context.Context, eventType event.Type, detail *job.Detail) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, eventType, detail)
}

func terminalDelta(state job.State) progress.Delta {
	switch state {
	case job.StateFinished:
		return progress.Delta{Finished: 1}
	case job.StateFailed:
		return progress.Delta{Failed: 1}
	}
	return progress.Delta{Stopped: 1}
}

func eventType(state job.State) event.Type {
	switch state {
	case job.StateFinished:
		return event.TypeFinished
	case job.StateFailed:
		return event.TypeFailed
	}
	return event.TypeStopped
}
