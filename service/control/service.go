// Package control exposes job listing, stop and wait to sessions. Every call
// may be made from any goroutine, including from inside a running job.
package control

import (
	"context"
	"fmt"

	"github.com/viant/jobgate/internal/clock"
	"github.com/viant/jobgate/runtime/job"
	"github.com/viant/jobgate/service/dao"
	"github.com/viant/jobgate/service/dao/job/memory"
	"github.com/viant/jobgate/service/scheduler"
)

// Service implements the job control surface
type Service struct {
	scheduler *scheduler.Service
	registry  *memory.Service
}

// New creates a control service
func New(scheduler *scheduler.Service) *Service {
	return &Service{scheduler: scheduler, registry: scheduler.Registry()}
}

// List returns ids of live jobs in submission order, skipping exclude
func (s *Service) List(ctx context.Context, exclude ...string) ([]string, error) {
	jobs, err := s.list(ctx, exclude, nil)
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ret = append(ret, j.ID)
	}
	return ret, nil
}

// ListDetails returns details of live jobs in submission order
func (s *Service) ListDetails(ctx context.Context, exclude ...string) ([]*job.Detail, error) {
	jobs, err := s.list(ctx, exclude, nil)
	if err != nil {
		return nil, err
	}
	return details(jobs), nil
}

// SessionJobs returns live jobs owned by sessionID
func (s *Service) SessionJobs(ctx context.Context, sessionID string) ([]*job.Detail, error) {
	jobs, err := s.list(ctx, nil, dao.NewParameter(dao.ParamSessionID, sessionID))
	if err != nil {
		return nil, err
	}
	return details(jobs), nil
}

func (s *Service) list(ctx context.Context, exclude []string, extra *dao.Parameter) ([]*job.Job, error) {
	var parameters []*dao.Parameter
	if len(exclude) > 0 {
		parameters = append(parameters, dao.NewParameter(dao.ParamExcludeID, exclude...))
	}
	if extra != nil {
		parameters = append(parameters, extra)
	}
	return s.registry.List(ctx, parameters...)
}

func details(jobs []*job.Job) []*job.Detail {
	now := clock.Now()
	ret := make([]*job.Detail, 0, len(jobs))
	for _, j := range jobs {
		ret = append(ret, j.Detail(now))
	}
	return ret
}

// Current returns the id of the job executing under ctx, empty outside a job
func (s *Service) Current(ctx context.Context) string {
	if j := job.FromContext(ctx); j != nil {
		return j.ID
	}
	return ""
}

// Stop requests job id to stop
func (s *Service) Stop(ctx context.Context, id string) error {
	return s.scheduler.Stop(ctx, id)
}

// Wait blocks until job id is terminal or ctx ends, then returns its result
func (s *Service) Wait(ctx context.Context, id string) (interface{}, error) {
	if j, err := s.registry.Load(ctx, id); err == nil {
		select {
		case <-j.Done():
			return j.Outcome().Result()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if outcome, ok := s.registry.Retained(id); ok {
		return outcome.Result()
	}
	if s.registry.Issued(id) {
		return nil, fmt.Errorf("%w: %v", job.ErrExpired, id)
	}
	return nil, job.NotFoundError(id)
}
