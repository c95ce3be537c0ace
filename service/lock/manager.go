// Package lock implements the lock manager guarding shared collections.
//
// A job declares its whole lock set up front and the manager grants it in a
// single step or not at all, so no job ever holds part of a set while waiting
// for the rest. Circular wait is impossible and no cycle detection is needed.
// Requests that can not be granted are parked in per-resource FIFO queues; a
// parked request is never overtaken by a later conflicting one.
//
// Manager is not safe for concurrent use: the scheduler calls it while holding
// the coordinating mutex that also guards its running slot counter.
package lock

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/viant/jobgate/model/lock"
)

// Declarer exposes resources a unit of work may touch
type Declarer interface {
	Accesses() ([]lock.Access, error)
}

// Manager owns granted locks and parked lock requests
type Manager struct {
	table *table
	queue *waitQueue
	seq   uint64
}

// New creates a lock manager
func New() *Manager {
	return &Manager{
		table: newTable(),
		queue: newWaitQueue(),
	}
}

// Declare derives the lock set of a unit of work. Literal targets lock the
// named collection, targets computed at evaluation time lock lock.Global.
func (m *Manager) Declare(unit Declarer) (lock.Set, error) {
	if unit == nil {
		return lock.Set{}, fmt.Errorf("unit was nil")
	}
	accesses, err := unit.Accesses()
	if err != nil {
		return lock.Set{}, fmt.Errorf("failed to declare resources: %w", err)
	}
	set, err := lock.NewSet(accesses...)
	if err != nil {
		return lock.Set{}, fmt.Errorf("invalid lock declaration: %w", err)
	}
	return set, nil
}

// Acquire grants the whole set to jobID or parks the request. It returns true
// once granted; a parked request is evaluated again on every subsequent call.
// An empty set is granted without being recorded.
func (m *Manager) Acquire(jobID string, set lock.Set) bool {
	if set.Empty() {
		return true
	}
	if _, ok := m.table.held[jobID]; ok {
		panic(errors.Errorf("lock: job %s already holds %v", jobID, m.table.held[jobID]))
	}
	req := m.queue.get(jobID)
	if req == nil {
		m.seq++
		req = &request{jobID: jobID, set: set, seq: m.seq}
		if m.table.grantable(set) && !m.queue.blocked(set, req.seq) {
			m.table.add(jobID, set)
			return true
		}
		m.queue.add(req)
		return false
	}
	if !m.table.grantable(req.set) || m.queue.blocked(req.set, req.seq) {
		return false
	}
	m.queue.remove(jobID)
	m.table.add(jobID, req.set)
	return true
}

// Release drops every lock held by jobID and returns the released resources.
// Releasing a job that holds nothing is a protocol violation.
func (m *Manager) Release(jobID string) []lock.Resource {
	released := m.table.release(jobID)
	if released == nil {
		panic(errors.Errorf("lock: job %s holds no locks", jobID))
	}
	return released
}

// Cancel withdraws a parked request, returns false when jobID was not waiting
func (m *Manager) Cancel(jobID string) bool {
	return m.queue.remove(jobID)
}

// Waiting returns parked job ids in arrival order
func (m *Manager) Waiting() []string {
	return m.queue.jobIDs()
}

// Held returns the set granted to jobID
func (m *Manager) Held(jobID string) (lock.Set, bool) {
	set, ok := m.table.held[jobID]
	return set, ok
}

// Holders returns a copy of holders granted on resource
func (m *Manager) Holders(resource lock.Resource) []Holder {
	holders := m.table.holders[resource]
	if len(holders) == 0 {
		return nil
	}
	return append([]Holder(nil), holders...)
}

// Resources returns number of resources with at least one holder
func (m *Manager) Resources() int {
	return len(m.table.holders)
}
