package lock

import (
	"github.com/viant/jobgate/model/lock"
)

// Holder represents a job granted a lock on a resource
type Holder struct {
	JobID string
	Mode  lock.Mode
}

// table maps resources to granted holders and jobs to the sets they hold.
type table struct {
	holders map[lock.Resource][]Holder
	held    map[string]lock.Set
}

func newTable() *table {
	return &table{
		holders: make(map[lock.Resource][]Holder),
		held:    make(map[string]lock.Set),
	}
}

// grantable checks whether set is compatible with every granted set.
func (t *table) grantable(set lock.Set) bool {
	for _, held := range t.held {
		if set.Conflicts(held) {
			return false
		}
	}
	return true
}

func (t *table) add(jobID string, set lock.Set) {
	for _, resource := range set.Resources() {
		mode, _ := set.Mode(resource)
		t.holders[resource] = append(t.holders[resource], Holder{JobID: jobID, Mode: mode})
	}
	t.held[jobID] = set
}

// release drops all locks of jobID; it returns nil when job held nothing
func (t *table) release(jobID string) []lock.Resource {
	set, ok := t.held[jobID]
	if !ok {
		return nil
	}
	resources := set.Resources()
	for _, resource := range resources {
		holders := t.holders[resource]
		filtered := holders[:0]
		for _, holder := range holders {
			if holder.JobID != jobID {
				filtered = append(filtered, holder)
			}
		}
		if len(filtered) == 0 {
			delete(t.holders, resource)
			continue
		}
		t.holders[resource] = filtered
	}
	delete(t.held, jobID)
	return resources
}
