package domain

import (
	"errors"
	"strconv"
)

var (
	// ErrInvalidRequest signals a request that cannot be built or sent (configuration error).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUpstream signals a failed call to an upstream service (non-2xx or transport error).
	ErrUpstream = errors.New("upstream failure")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// UpstreamError carries the HTTP status returned by an upstream service.
// Status is 0 for transport-level failures.
type UpstreamError struct {
	Service string
	Op      string
	Status  int
	Err     error
}

func (e *UpstreamError) Error() string {
	msg := e.Service + " " + e.Op
	if e.Status > 0 {
		msg += ": status " + strconv.Itoa(e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the cause and the ErrUpstream sentinel to errors.Is.
func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}
