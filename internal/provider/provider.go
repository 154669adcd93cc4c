// Package provider hides external generation APIs behind a small adapter
// contract with a normalized status vocabulary.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// State is the normalized provider status union.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Request is the internal generation request handed to an adapter.
type Request struct {
	ProviderJobID string
	Prompt        string
	Duration      string
	AspectRatio   string
	Seed          int32
}

// Handle identifies a dispatched generation on the provider side.
type Handle struct {
	ID string
}

// Status is the normalized snapshot returned by Poll.
type Status struct {
	State State
	// Progress is a 0-100 hint; 0 means the provider gave none.
	Progress int
	// OutputURL is set once State is succeeded.
	OutputURL string
	// ErrorDetail carries the provider's own failure description when State
	// is failed. Transport problems are returned as errors instead.
	ErrorDetail string
}

// ErrCancelUnsupported is returned by adapters without a cancel capability.
// Callers must treat it as a no-op, never as a failure.
var ErrCancelUnsupported = errors.New("provider: cancel not supported")

// Adapter is implemented once per external provider. Dispatch is not retried
// by callers; a dispatch error makes the job terminally failed.
type Adapter interface {
	Name() string
	Dispatch(ctx context.Context, req Request) (Handle, error)
	Poll(ctx context.Context, h Handle) (Status, error)
	Cancel(ctx context.Context, h Handle) error
}

// TransportError wraps network-level failures so callers can distinguish
// "provider unreachable" from a provider-reported logical failure. Its raw
// cause is for logs only and must not reach end users.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a network-level provider failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
