package jobgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/jobgate/metrics"
	"github.com/viant/jobgate/model/plan"
	"github.com/viant/jobgate/progress"
	"github.com/viant/jobgate/runtime/job"
	"github.com/viant/jobgate/service/control"
	"github.com/viant/jobgate/service/dao/workload"
	"github.com/viant/jobgate/service/event"
	"github.com/viant/jobgate/service/scheduler"
	"github.com/viant/jobgate/service/session"
	"go.uber.org/zap"
)

// Runtime represents a job runtime
type Runtime struct {
	config     *Config
	logger     *zap.Logger
	scheduler  *scheduler.Service
	control    *control.Service
	sessions   *session.Service
	workloads  *workload.Service
	events     *event.Service
	progress   *progress.Progress
	metrics    *metrics.Metrics
	registerer prometheus.Registerer
}

// Submit admits unit on behalf of sessionID (empty for none) and returns the
// job id. The job either starts at once or waits for its locks.
func (r *Runtime) Submit(ctx context.Context, sessionID string, unit job.Unit) (string, error) {
	if p, ok := unit.(*plan.Plan); ok && p != nil && p.Safepoint == 0 {
		withSafepoint := *p
		withSafepoint.Safepoint = r.config.Safepoint
		unit = &withSafepoint
	}
	if sessionID == "" {
		return r.submit(ctx, "", unit)
	}
	var id string
	err := r.sessions.Within(ctx, sessionID, func() (err error) {
		id, err = r.submit(ctx, sessionID, unit)
		return err
	})
	return id, err
}

func (r *Runtime) submit(ctx context.Context, sessionID string, unit job.Unit) (string, error) {
	j, err := r.scheduler.Submit(ctx, sessionID, unit)
	if err != nil {
		return "", err
	}
	return j.ID, nil
}

// Execute submits unit and waits for its result. When ctx ends first the job
// is stopped and ctx's error is returned.
func (r *Runtime) Execute(ctx context.Context, sessionID string, unit job.Unit) (interface{}, error) {
	id, err := r.Submit(ctx, sessionID, unit)
	if err != nil {
		return nil, err
	}
	value, err := r.control.Wait(ctx, id)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		if stopErr := r.control.Stop(context.WithoutCancel(ctx), id); stopErr != nil {
			r.logger.Warn("failed to stop job", zap.String("job.id", id), zap.Error(stopErr))
		}
		return nil, fmt.Errorf("%v: %w", id, err)
	}
	return value, err
}

// List returns ids of live jobs in submission order, skipping exclude
func (r *Runtime) List(ctx context.Context, exclude ...string) ([]string, error) {
	return r.control.List(ctx, exclude...)
}

// ListDetails returns details of live jobs in submission order
func (r *Runtime) ListDetails(ctx context.Context, exclude ...string) ([]*job.Detail, error) {
	return r.control.ListDetails(ctx, exclude...)
}

// Current returns the id of the job executing under ctx
func (r *Runtime) Current(ctx context.Context) string {
	return r.control.Current(ctx)
}

// Stop requests job id to stop
func (r *Runtime) Stop(ctx context.Context, id string) error {
	return r.control.Stop(ctx, id)
}

// Wait blocks until job id is terminal and returns its result
func (r *Runtime) Wait(ctx context.Context, id string) (interface{}, error) {
	return r.control.Wait(ctx, id)
}

// Stats returns a snapshot of job counters
func (r *Runtime) Stats() progress.Counters {
	return r.progress.Snapshot()
}

// OpenSession creates a session
func (r *Runtime) OpenSession(ctx context.Context, name string) (*session.Session, error) {
	return r.sessions.Create(ctx, name)
}

// CloseSession destroys a session and stops its jobs
func (r *Runtime) CloseSession(ctx context.Context, id string) error {
	return r.sessions.Destroy(ctx, id)
}

// Sessions returns open sessions
func (r *Runtime) Sessions() []*session.Session {
	return r.sessions.List()
}

// LoadWorkload loads a workload of plans
func (r *Runtime) LoadWorkload(ctx context.Context, URL string) (*plan.Workload, error) {
	return r.workloads.Load(ctx, URL)
}

// DecodeWorkload decodes a YAML workload of plans
func (r *Runtime) DecodeWorkload(data []byte) (*plan.Workload, error) {
	return r.workloads.DecodeYAML(data)
}

// Shutdown closes every session, stops every job and waits for running jobs
// to end or ctx to expire. Submissions are rejected afterwards.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var result *multierror.Error
	if err := r.sessions.Close(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.scheduler.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.events.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if r.metrics != nil {
		r.metrics.Unregister(r.registerer)
	}
	return result.ErrorOrNil()
}
