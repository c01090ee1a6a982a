package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	// ErrDropped resolves jobs that were dequeued after the consumer left.
	ErrDropped = errors.New("job dropped by queue")
)
