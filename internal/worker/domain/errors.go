package domain

import "errors"

var (
	// ErrDocumentNotFound is returned when a claimed job points at a
	// document row that no longer exists.
	ErrDocumentNotFound = errors.New("document not found")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
