// Package reasoning is the boundary to the generative reasoning service. The
// pipeline consumes the Client interface only; the HTTP implementation and
// its error taxonomy live here so retry policy stays in one place.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dealflow-labs/dealflow-go/internal/fragment"
)

// Request is one structured-output invocation. Prompt content is owned by the
// caller; the client only transports it. A nil Temperature means the client's
// configured default, so zero stays expressible.
type Request struct {
	Prompt      string
	Schema      json.RawMessage
	Model       string
	Temperature *float64
}

// Client invokes the reasoning service and returns the structured fragment it
// produced.
type Client interface {
	Invoke(ctx context.Context, req Request) (fragment.Fragment, error)
}

// RateLimitError is a 429 from the service. Retryable.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("reasoning service rate limited, retry after %s", e.RetryAfter)
	}
	return "reasoning service rate limited"
}

func (e *RateLimitError) Retryable() bool { return true }

// ServerError is a transient 5xx from the service. Retryable.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("reasoning service error: status %d", e.StatusCode)
}

func (e *ServerError) Retryable() bool { return true }

// PermanentError is a malformed request or auth failure. It must fail the
// stage immediately rather than exhaust the retry budget.
type PermanentError struct {
	StatusCode int
	Reason     string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("reasoning request rejected (status %d): %s", e.StatusCode, e.Reason)
}

func (e *PermanentError) Permanent() bool { return true }

// InvalidResponseError is a response body that could not be used: empty
// candidates or unparsable JSON. Retryable, since regeneration usually fixes
// it.
type InvalidResponseError struct {
	Reason string
}

func (e *InvalidResponseError) Error() string {
	return "invalid reasoning response: " + e.Reason
}

func (e *InvalidResponseError) Retryable() bool { return true }
