package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrRetryExhausted indicates that a job has used up its retry budget
	ErrRetryExhausted = errors.New("retry limit reached")

	// ErrNotRetryable indicates that a job is not in a retryable state
	ErrNotRetryable = errors.New("job is not in a retryable state")
)

// InvalidTransitionError reports an attempted illegal job status transition.
type InvalidTransitionError struct {
	From JobStatus
	To   JobStatus
}

// Error returns a formatted message describing the rejected transition.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid job status transition: %s -> %s", e.From, e.To)
}
