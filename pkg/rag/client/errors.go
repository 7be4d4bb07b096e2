package client

import (
	"errors"
	"fmt"
	"time"
)

// TransportError wraps network level failures (connection refused, DNS,
// broken pipe). These are the only failures worth retrying blindly.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: failed to fetch: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError is returned when the client-side deadline of a call expires.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request timed out after %s", e.Op, e.Timeout)
}

// BackendError is a non-2xx response. Error() is exactly the backend detail
// so it can be shown verbatim.
type BackendError struct {
	StatusCode int
	Detail     string
}

func (e *BackendError) Error() string {
	return e.Detail
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

func IsBackend(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
