// Package lock defines the values used to describe what a job locks: resource
// identifiers, access modes and lock sets.
package lock

import "strings"

// Resource identifies a lockable collection. The zero value is not valid; use
// Named or Global.
type Resource struct {
	name   string
	global bool
}

// Global stands for "all collections". It is used when the concrete target of
// an operation is only known at evaluation time.
var Global = Resource{global: true}

// Named returns a resource identifying a single collection.
func Named(name string) Resource {
	return Resource{name: name}
}

// Name returns collection name, empty for Global.
func (r Resource) Name() string {
	return r.name
}

// IsGlobal returns true for the Global sentinel
func (r Resource) IsGlobal() bool {
	return r.global
}

// IsValid reports whether r is Global or carries a non-empty name.
func (r Resource) IsValid() bool {
	return r.global || r.name != ""
}

// Compare orders resources: Global first, then named resources lexicographically.
func (r Resource) Compare(other Resource) int {
	switch {
	case r.global && other.global:
		return 0
	case r.global:
		return -1
	case other.global:
		return 1
	}
	return strings.Compare(r.name, other.name)
}

func (r Resource) String() string {
	if r.global {
		return "*"
	}
	return r.name
}
