package idgen

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// NewFunc returns a new globally unique identifier; override in tests.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier as string.
func New() string { return NewFunc() }

// Sequence issues monotonic identifiers such as job1, job2, ...
type Sequence struct {
	prefix string
	last   atomic.Uint64
}

// NewSequence creates a sequence with the supplied prefix
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next returns the next identifier
func (s *Sequence) Next() string {
	return s.prefix + strconv.FormatUint(s.last.Add(1), 10)
}

// Issued returns true if id was returned by Next
func (s *Sequence) Issued(id string) bool {
	digits, ok := strings.CutPrefix(id, s.prefix)
	if !ok || digits == "" || digits[0] == '0' {
		return false
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return false
	}
	return n <= s.last.Load()
}
