package agent

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports one attempt exceeding its per-attempt deadline. It is
// retryable like any other operation failure.
type TimeoutError struct {
	Stage   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Stage, e.Timeout)
}

func (e *TimeoutError) Retryable() bool { return true }

// OperationError wraps a failure returned by the wrapped operation itself.
type OperationError struct {
	Stage string
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s operation failed: %v", e.Stage, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// MaxRetriesError reports a stage that exhausted its retry budget. The retry
// loop returns it as an explicit kind; callers inspect it rather than catching
// a generic failure.
type MaxRetriesError struct {
	Stage    string
	Attempts int
	LastErr  error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Stage, e.Attempts, e.LastErr)
}

func (e *MaxRetriesError) Unwrap() error { return e.LastErr }

// retryable marks errors that are known transient failure shapes. Errors
// without the marker are treated as unexpected: still retried, logged
// distinctly.
type retryable interface {
	Retryable() bool
}

// permanent marks errors that must not burn the retry budget, such as
// malformed requests or auth failures at the reasoning boundary.
type permanent interface {
	Permanent() bool
}

// IsRetryable reports whether err is a known transient failure.
func IsRetryable(err error) bool {
	var r retryable
	return errors.As(err, &r) && r.Retryable()
}

// IsPermanent reports whether err must fail the stage immediately.
func IsPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p) && p.Permanent()
}
