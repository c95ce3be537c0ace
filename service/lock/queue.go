package lock

import (
	"slices"

	"github.com/viant/jobgate/model/lock"
)

// request represents a parked lock set request
type request struct {
	jobID string
	set   lock.Set
	seq   uint64
}

// waitQueue keeps parked requests in per-resource FIFO order together with a
// job index. Global requests queue under lock.Global.
type waitQueue struct {
	byResource map[lock.Resource][]*request
	byJob      map[string]*request
	ordered    []*request
}

func newWaitQueue() *waitQueue {
	return &waitQueue{
		byResource: make(map[lock.Resource][]*request),
		byJob:      make(map[string]*request),
	}
}

func (q *waitQueue) get(jobID string) *request {
	return q.byJob[jobID]
}

func (q *waitQueue) add(req *request) {
	for _, resource := range req.set.Resources() {
		q.byResource[resource] = append(q.byResource[resource], req)
	}
	q.byJob[req.jobID] = req
	q.ordered = append(q.ordered, req)
}

func (q *waitQueue) remove(jobID string) bool {
	req, ok := q.byJob[jobID]
	if !ok {
		return false
	}
	for _, resource := range req.set.Resources() {
		queue := slices.DeleteFunc(q.byResource[resource], func(candidate *request) bool {
			return candidate == req
		})
		if len(queue) == 0 {
			delete(q.byResource, resource)
			continue
		}
		q.byResource[resource] = queue
	}
	q.ordered = slices.DeleteFunc(q.ordered, func(candidate *request) bool {
		return candidate == req
	})
	delete(q.byJob, jobID)
	return true
}

// blocked reports whether a request that arrived before seq conflicts with set.
// Requests for the same resource are served first come, first served.
func (q *waitQueue) blocked(set lock.Set, seq uint64) bool {
	if set.IsGlobal() {
		return len(q.ordered) > 0 && q.ordered[0].seq < seq
	}
	if globals := q.byResource[lock.Global]; len(globals) > 0 && globals[0].seq < seq {
		return true
	}
	for _, resource := range set.Resources() {
		mode, _ := set.Mode(resource)
		for _, earlier := range q.byResource[resource] {
			if earlier.seq >= seq {
				break
			}
			earlierMode, _ := earlier.set.Mode(resource)
			if mode.Conflicts(earlierMode) {
				return true
			}
		}
	}
	return false
}

func (q *waitQueue) jobIDs() []string {
	ret := make([]string, 0, len(q.ordered))
	for _, req := range q.ordered {
		ret = append(ret, req.jobID)
	}
	return ret
}
