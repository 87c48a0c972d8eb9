package gateway

import (
	"errors"
	"fmt"
)

// RejectionError is a business-rule failure reported by the settlement
// endpoint (insufficient funds, consumed code, ...). Permanent; the server
// message is surfaced to the user verbatim and never retried.
type RejectionError struct {
	Kind    string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("settlement rejected (%s): %s", e.Kind, e.Message)
}

// TransportError is a transient delivery failure: timeout, connection error
// or a 5xx from the endpoint. Retryable through the transfer queue only.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport failure: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a retryable transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRejection reports whether err is a permanent settlement rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}

// AsRejection unwraps a rejection error, or returns nil.
func AsRejection(err error) *RejectionError {
	var re *RejectionError
	if errors.As(err, &re) {
		return re
	}
	return nil
}

// classifyTransport wraps network-level failures. Timeouts count as transport
// errors: the request may still have gone through, which is exactly why every
// submission carries an idempotency token.
func classifyTransport(err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Err: err}
}
