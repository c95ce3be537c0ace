// Package session keeps the process-wide table of client sessions. Jobs are
// submitted on behalf of a session; destroying the session stops them.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/viant/jobgate/internal/clock"
	"github.com/viant/jobgate/internal/idgen"
	"github.com/viant/jobgate/runtime/job"
	"github.com/viant/jobgate/service/dao/store"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for an unknown session id
	ErrNotFound = errors.New("session: not found")
	// ErrClosed is returned once the table was torn down
	ErrClosed = errors.New("session: table closed")
)

// Session represents a client session
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Controller lists and stops jobs of a session
type Controller interface {
	SessionJobs(ctx context.Context, sessionID string) ([]*job.Detail, error)
	Stop(ctx context.Context, id string) error
}

// Service owns the session table
type Service struct {
	mux      sync.RWMutex
	sessions *store.Memory[string, Session]
	closed   bool
	control  Controller
	newID    func() string
	logger   *zap.Logger
}

// Option customises the service
type Option func(s *Service)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithIDGenerator sets the session id generator
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// New creates a session table
func New(control Controller, options ...Option) *Service {
	ret := &Service{
		sessions: store.NewMemory[string, Session](func(s *Session) string { return s.ID }),
		control:  control,
		newID:    idgen.New,
		logger:   zap.NewNop(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Create opens a new session
func (s *Service) Create(ctx context.Context, name string) (*Session, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	ret := &Session{ID: s.newID(), Name: name, CreatedAt: clock.Now()}
	if err := s.sessions.Save(ctx, ret); err != nil {
		return nil, err
	}
	s.logger.Debug("session opened", zap.String("session.id", ret.ID), zap.String("session.name", name))
	return ret, nil
}

// Get returns a session
func (s *Service) Get(id string) (*Session, bool) {
	ret, err := s.sessions.Load(context.Background(), id)
	return ret, err == nil
}

// List returns open sessions ordered by creation time
func (s *Service) List() []*Session {
	ret, _ := s.sessions.List(context.Background())
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID < ret[j].ID
		}
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret
}

// Within runs fn while session id is open. Destroy and Close wait for fn to
// return, so a job submitted by fn is seen by their stop pass.
func (s *Service) Within(ctx context.Context, id string, fn func() error) error {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.sessions.Load(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	return fn()
}

// Destroy removes the session and stops every job it owns
func (s *Service) Destroy(ctx context.Context, id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	return s.stopJobs(ctx, id)
}

func (s *Service) stopJobs(ctx context.Context, id string) error {
	if s.control == nil {
		return nil
	}
	jobs, err := s.control.SessionJobs(ctx, id)
	if err != nil {
		return err
	}
	var result *multierror.Error
	for _, detail := range jobs {
		if err = s.control.Stop(ctx, detail.ID); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.logger.Info("session closed", zap.String("session.id", id), zap.Int("jobs.stopped", len(jobs)))
	return result.ErrorOrNil()
}

// Close destroys every session and rejects new ones
func (s *Service) Close(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var result *multierror.Error
	for _, session := range s.sessions.Drain() {
		if err := s.stopJobs(ctx, session.ID); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Len returns number of open sessions
func (s *Service) Len() int {
	return s.sessions.Len()
}
