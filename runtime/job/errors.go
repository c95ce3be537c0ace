package job

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for a job id that was never issued.
	ErrNotFound = errors.New("job: not found")

	// ErrStopped is the outcome of a job stopped before it completed.
	ErrStopped = errors.New("job: stopped")

	// ErrExpired is returned when a job terminated long enough ago that its
	// outcome is no longer retained.
	ErrExpired = errors.New("job: outcome expired")

	// ErrClosed is returned by a runtime that has been shut down.
	ErrClosed = errors.New("job: runtime closed")
)

// EvaluationError carries the error raised by a unit of work
type EvaluationError struct {
	JobID string
	Cause error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.JobID, e.Cause)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// NotFoundError annotates ErrNotFound with the requested id
func NotFoundError(id string) error {
	return fmt.Errorf("%w: %v", ErrNotFound, id)
}
