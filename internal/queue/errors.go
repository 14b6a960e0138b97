package queue

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotProcessing is returned when a terminal transition is attempted
	// on a job that is not currently processing
	ErrJobNotProcessing = errors.New("job is not in processing status")
)
