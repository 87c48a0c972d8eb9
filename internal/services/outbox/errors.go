package outbox

import "errors"

// Service errors
var (
	ErrInvalidIntent  = errors.New("invalid transfer intent")
	ErrNotFound       = errors.New("pending transfer not found")
	ErrNotCancellable = errors.New("transfer is no longer cancellable")
	ErrNotRetryable   = errors.New("only failed transfers can be retried")
)
