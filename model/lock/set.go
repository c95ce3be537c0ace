package lock

import (
	"fmt"
	"slices"
	"strings"
)

// Access is a single resource access declared by a unit of work before it runs.
// When Dynamic is true the target name is only known at evaluation time and
// Database is informative.
type Access struct {
	Database string
	Dynamic  bool
	Mode     Mode
}

// ReadOf returns a read access to a literal database name
func ReadOf(database string) Access {
	return Access{Database: database, Mode: Read}
}

// WriteOf returns a write access to a literal database name
func WriteOf(database string) Access {
	return Access{Database: database, Mode: Write}
}

// DynamicOf returns an access whose target is computed at evaluation time
func DynamicOf(mode Mode) Access {
	return Access{Dynamic: true, Mode: mode}
}

// Resource returns the resource the access locks
func (a Access) Resource() Resource {
	if a.Dynamic {
		return Global
	}
	return Named(a.Database)
}

// Validate checks the access is well formed
func (a Access) Validate() error {
	if !a.Mode.IsValid() {
		return fmt.Errorf("invalid access mode %v for %q", a.Mode, a.Database)
	}
	if !a.Dynamic && a.Database == "" {
		return fmt.Errorf("database name was empty")
	}
	return nil
}

// Set is the immutable set of resources a job locks, one mode per resource.
// The zero value is an empty set, describing a non-locking job.
type Set struct {
	entries map[Resource]Mode
}

// NewSet builds a set from declared accesses. Read and write on the same
// resource collapse to write; Global always locks in write mode.
func NewSet(accesses ...Access) (Set, error) {
	if len(accesses) == 0 {
		return Set{}, nil
	}
	entries := make(map[Resource]Mode, len(accesses))
	for _, access := range accesses {
		if err := access.Validate(); err != nil {
			return Set{}, err
		}
		resource := access.Resource()
		mode := access.Mode
		if resource.IsGlobal() {
			mode = Write
		}
		if prev, ok := entries[resource]; ok && prev == Write {
			continue
		}
		entries[resource] = mode
	}
	return Set{entries: entries}, nil
}

// MustSet is NewSet that panics on invalid input; intended for tests and literals.
func MustSet(accesses ...Access) Set {
	ret, err := NewSet(accesses...)
	if err != nil {
		panic(err)
	}
	return ret
}

// Empty returns true for a non-locking set
func (s Set) Empty() bool {
	return len(s.entries) == 0
}

// Len returns number of locked resources
func (s Set) Len() int {
	return len(s.entries)
}

// Mode returns the mode held on resource
func (s Set) Mode(resource Resource) (Mode, bool) {
	mode, ok := s.entries[resource]
	return mode, ok
}

// IsGlobal returns true when the set locks every collection
func (s Set) IsGlobal() bool {
	_, ok := s.entries[Global]
	return ok
}

// Resources returns locked resources in acquisition order.
func (s Set) Resources() []Resource {
	ret := make([]Resource, 0, len(s.entries))
	for resource := range s.entries {
		ret = append(ret, resource)
	}
	slices.SortFunc(ret, Resource.Compare)
	return ret
}

// Conflicts reports whether both sets can not be held at the same time.
func (s Set) Conflicts(other Set) bool {
	if s.Empty() || other.Empty() {
		return false
	}
	if s.IsGlobal() || other.IsGlobal() {
		return true
	}
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	for resource, mode := range small.entries {
		if otherMode, ok := large.entries[resource]; ok && mode.Conflicts(otherMode) {
			return true
		}
	}
	return false
}

func (s Set) String() string {
	if s.Empty() {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, resource := range s.Resources() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(resource.String())
		b.WriteByte(':')
		b.WriteString(s.entries[resource].String())
	}
	b.WriteByte('}')
	return b.String()
}
