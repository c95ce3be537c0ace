// Package progress keeps aggregated job counters for a runtime: how many jobs
// were submitted, are queued or running, and how many ended in each terminal
// state. The scheduler applies deltas; metrics and Runtime.Stats read
// snapshots.
package progress

import (
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the scheduler.
// Fields are signed so a transition is expressed as -1/+1 pair.
type Delta struct {
	Submitted int
	Queued    int
	Running   int
	Locking   int
	Finished  int
	Failed    int
	Stopped   int
}

// Counters is a point-in-time copy of the tracked values
type Counters struct {
	StartedAt time.Time `json:"startedAt" yaml:"startedAt"`
	Submitted int       `json:"submitted" yaml:"submitted"`
	Queued    int       `json:"queued" yaml:"queued"`
	Running   int       `json:"running" yaml:"running"`
	// Locking counts running jobs occupying a parallel slot
	Locking  int `json:"locking" yaml:"locking"`
	Finished int `json:"finished" yaml:"finished"`
	Failed   int `json:"failed" yaml:"failed"`
	Stopped  int `json:"stopped" yaml:"stopped"`
}

// Terminated returns number of jobs in any terminal state
func (c Counters) Terminated() int {
	return c.Finished + c.Failed + c.Stopped
}

func (c *Counters) apply(d Delta) {
	c.Submitted += d.Submitted
	c.Queued += d.Queued
	c.Running += d.Running
	c.Locking += d.Locking
	c.Finished += d.Finished
	c.Failed += d.Failed
	c.Stopped += d.Stopped
}

// Progress keeps job counters. It is safe for concurrent use.
type Progress struct {
	mux      sync.Mutex
	counters Counters
}

// New creates a tracker
func New() *Progress {
	return &Progress{counters: Counters{StartedAt: time.Now()}}
}

// Update applies the supplied delta
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	p.counters.apply(d)
}

// Snapshot returns a copy of the counters
func (p *Progress) Snapshot() Counters {
	if p == nil {
		return Counters{}
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.counters
}
