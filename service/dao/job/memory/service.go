// Package memory implements the process-wide job registry.
//
// The registry owns the canonical job records. Jobs are listed in submission
// order and removed in the same critical section that makes them terminal, so
// a listing never contains a finished job. Terminal outcomes are retained in a
// bounded LRU cache so that a late wait can still observe them.
package memory

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/viant/jobgate/internal/idgen"
	"github.com/viant/jobgate/runtime/job"
	"github.com/viant/jobgate/service/dao"
	"github.com/viant/jobgate/service/dao/criteria"
)

// DefaultRetention is the number of terminal outcomes retained by default
const DefaultRetention = 1000

// Service implements an in-memory, thread-safe job registry
type Service struct {
	mux       sync.RWMutex
	jobs      map[string]*list.Element
	order     *list.List
	sequence  *idgen.Sequence
	retention int
	retained  *lru.Cache
}

// Option customises the registry
type Option func(s *Service)

// WithRetention sets number of terminal outcomes kept for late waiters, 0 disables retention
func WithRetention(size int) Option {
	return func(s *Service) {
		s.retention = size
	}
}

// WithIDPrefix sets the job id prefix
func WithIDPrefix(prefix string) Option {
	return func(s *Service) {
		s.sequence = idgen.NewSequence(prefix)
	}
}

// New creates a registry
func New(options ...Option) (*Service, error) {
	ret := &Service{
		jobs:      make(map[string]*list.Element),
		order:     list.New(),
		sequence:  idgen.NewSequence("job"),
		retention: DefaultRetention,
	}
	for _, option := range options {
		option(ret)
	}
	if ret.retention < 0 {
		return nil, fmt.Errorf("invalid retention: %v", ret.retention)
	}
	if ret.retention > 0 {
		cache, err := lru.New(ret.retention)
		if err != nil {
			return nil, fmt.Errorf("failed to create outcome cache: %w", err)
		}
		ret.retained = cache
	}
	return ret, nil
}

// NextID issues a new job id
func (s *Service) NextID() string {
	return s.sequence.Next()
}

// Issued returns true when id was ever issued by this registry
func (s *Service) Issued(id string) bool {
	return s.sequence.Issued(id)
}

// Save registers a new job
func (s *Service) Save(_ context.Context, j *job.Job) error {
	if j == nil {
		return dao.ErrNilEntity
	}
	if j.ID == "" {
		return dao.ErrInvalidID
	}
	if j.State().IsTerminal() {
		return fmt.Errorf("can not register %s job %s", j.State(), j.ID)
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.jobs[j.ID]; ok {
		return fmt.Errorf("%w: %v", dao.ErrDuplicate, j.ID)
	}
	s.jobs[j.ID] = s.order.PushBack(j)
	return nil
}

// Load returns a live (non-terminal) job
func (s *Service) Load(_ context.Context, id string) (*job.Job, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mux.RLock()
	defer s.mux.RUnlock()
	element, ok := s.jobs[id]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return element.Value.(*job.Job), nil
}

// List returns live jobs in submission order
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*job.Job, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := make([]*job.Job, 0, len(s.jobs))
	for element := s.order.Front(); element != nil; element = element.Next() {
		j := element.Value.(*job.Job)
		state := j.State()
		if state.IsTerminal() {
			continue
		}
		if !criteria.Match(string(state), j.ID, j.SessionID, parameters) {
			continue
		}
		ret = append(ret, j)
	}
	return ret, nil
}

// Terminate records the outcome, removes the job from the listing and retains
// the outcome, all under one lock.
func (s *Service) Terminate(_ context.Context, id string, outcome *job.Outcome, now time.Time) (*job.Job, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	element, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %v", dao.ErrNotFound, id)
	}
	j := element.Value.(*job.Job)
	if err := j.Terminate(outcome, now); err != nil {
		return nil, err
	}
	s.order.Remove(element)
	delete(s.jobs, id)
	if s.retained != nil {
		s.retained.Add(id, outcome)
	}
	return j, nil
}

// Retained returns the outcome of a terminated job if still cached
func (s *Service) Retained(id string) (*job.Outcome, bool) {
	if s.retained == nil {
		return nil, false
	}
	value, ok := s.retained.Get(id)
	if !ok {
		return nil, false
	}
	return value.(*job.Outcome), true
}

// Len returns number of live jobs
func (s *Service) Len() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return len(s.jobs)
}
