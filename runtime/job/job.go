package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/viant/jobgate/model/lock"
)

// Job represents one trackable unit of query or command execution
type Job struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	SessionID string    `json:"sessionId,omitempty"`
	Locks     lock.Set  `json:"-"`
	CreatedAt time.Time `json:"createdAt"`

	mux        sync.RWMutex
	state      State
	startedAt  *time.Time
	finishedAt *time.Time
	outcome    *Outcome
	token      *Token
	done       chan struct{}
	unit       Unit
}

// New creates a queued job
func New(id string, sessionID string, unit Unit, locks lock.Set, createdAt time.Time) *Job {
	ret := &Job{
		ID:        id,
		SessionID: sessionID,
		Locks:     locks,
		CreatedAt: createdAt,
		state:     StateQueued,
		token:     NewToken(),
		done:      make(chan struct{}),
		unit:      unit,
	}
	if unit != nil {
		ret.Kind = unit.Kind()
	}
	return ret
}

// IsLocking returns true when the job declared at least one lock
func (j *Job) IsLocking() bool {
	return !j.Locks.Empty()
}

// Unit returns the unit of work
func (j *Job) Unit() Unit {
	return j.unit
}

// Token returns the cancellation token
func (j *Job) Token() *Token {
	return j.token
}

// Done is closed once the job reaches a terminal state
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// State returns the current state
func (j *Job) State() State {
	j.mux.RLock()
	defer j.mux.RUnlock()
	return j.state
}

// StartedAt returns start time, nil while queued
func (j *Job) StartedAt() *time.Time {
	j.mux.RLock()
	defer j.mux.RUnlock()
	return j.startedAt
}

// Outcome returns terminal outcome, nil until terminal
func (j *Job) Outcome() *Outcome {
	j.mux.RLock()
	defer j.mux.RUnlock()
	return j.outcome
}

// Start transitions a queued job to running
func (j *Job) Start(now time.Time) error {
	j.mux.Lock()
	defer j.mux.Unlock()
	if j.state != StateQueued {
		return fmt.Errorf("job %s can not start in %s state", j.ID, j.state)
	}
	j.state = StateRunning
	j.startedAt = &now
	return nil
}

// Terminate records the outcome and releases waiters. It fails when the job is
// already terminal.
func (j *Job) Terminate(outcome *Outcome, now time.Time) error {
	if outcome == nil || !outcome.State.IsTerminal() {
		return fmt.Errorf("job %s: invalid terminal outcome %v", j.ID, outcome)
	}
	j.mux.Lock()
	defer j.mux.Unlock()
	if j.state.IsTerminal() {
		return fmt.Errorf("job %s already %s", j.ID, j.state)
	}
	j.state = outcome.State
	j.outcome = outcome
	j.finishedAt = &now
	close(j.done)
	return nil
}

// Detail returns a point in time description of the job
func (j *Job) Detail(now time.Time) *Detail {
	j.mux.RLock()
	defer j.mux.RUnlock()
	ret := &Detail{
		ID:        j.ID,
		Kind:      j.Kind,
		SessionID: j.SessionID,
		State:     j.state,
		Locks:     j.Locks.String(),
		Locking:   !j.Locks.Empty(),
		CreatedAt: j.CreatedAt,
		StartedAt: j.startedAt,
	}
	if j.startedAt != nil {
		end := now
		if j.finishedAt != nil {
			end = *j.finishedAt
		}
		ret.Duration = end.Sub(*j.startedAt)
	}
	return ret
}

// Detail represents job listing entry
type Detail struct {
	ID        string        `json:"id" yaml:"id"`
	Kind      Kind          `json:"kind" yaml:"kind"`
	SessionID string        `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
	State     State         `json:"state" yaml:"state"`
	Locks     string        `json:"locks" yaml:"locks"`
	Locking   bool          `json:"locking" yaml:"locking"`
	CreatedAt time.Time     `json:"createdAt" yaml:"createdAt"`
	StartedAt *time.Time    `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}
