package tools

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies adapter failures so the router can decide between
// retrying, degrading, and surfacing the error to the caller.
type Kind int

const (
	// KindTransient covers network errors and timeouts. Retryable once.
	KindTransient Kind = iota
	// KindInvalidInput covers unreadable files and malformed queries. Not retryable.
	KindInvalidInput
	// KindUnavailable covers vendor outages. The turn degrades gracefully.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ToolError is the uniform failure report for every adapter.
type ToolError struct {
	Tool string
	Kind Kind
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Tool, e.Kind, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable failure.
func Transient(tool string, err error) *ToolError {
	return &ToolError{Tool: tool, Kind: KindTransient, Err: err}
}

// InvalidInput wraps err as a caller error.
func InvalidInput(tool string, err error) *ToolError {
	return &ToolError{Tool: tool, Kind: KindInvalidInput, Err: err}
}

// Unavailable wraps err as a vendor outage.
func Unavailable(tool string, err error) *ToolError {
	return &ToolError{Tool: tool, Kind: KindUnavailable, Err: err}
}

// KindOf extracts the failure kind from err. Non-tool errors and context
// timeouts are treated as transient so callers get one retry.
func KindOf(err error) Kind {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindTransient
}

// ClassifyStatus maps a vendor HTTP status to a failure kind.
func ClassifyStatus(tool string, status int, body string) *ToolError {
	err := fmt.Errorf("status %d: %s", status, body)
	switch {
	case status == 400 || status == 404 || status == 413 || status == 422:
		return InvalidInput(tool, err)
	case status == 408 || status == 429 || status >= 500 && status < 503:
		return Transient(tool, err)
	default:
		return Unavailable(tool, err)
	}
}

// WithRetry runs fn, retrying exactly once after backoff when the failure
// is transient. A second transient failure is reported as unavailable so
// the router degrades instead of blocking.
func WithRetry[T any](ctx context.Context, tool string, backoff time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}
	if KindOf(err) != KindTransient {
		return result, err
	}

	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return result, Unavailable(tool, ctx.Err())
	}

	result, err = fn(ctx)
	if err == nil {
		return result, nil
	}
	if KindOf(err) == KindTransient {
		return result, Unavailable(tool, err)
	}
	return result, err
}
