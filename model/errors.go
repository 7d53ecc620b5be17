package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for client failures callers branch on.
var (
	// ErrNoAPIKey means the client was constructed without credentials.
	ErrNoAPIKey = errors.New("model: no API key configured")

	// ErrInvalidResponse means the provider answered but the reply carried
	// no usable text content.
	ErrInvalidResponse = errors.New("model: invalid response")

	// ErrRateLimited maps provider 429 responses.
	ErrRateLimited = errors.New("model: rate limited")

	// ErrOverloaded maps provider 529 responses.
	ErrOverloaded = errors.New("model: overloaded")

	// ErrTokenBudgetExceeded means the request was too large for the
	// model's context window.
	ErrTokenBudgetExceeded = errors.New("model: token budget exceeded")
)

// HTTPError reports a non-2xx provider response not covered by a
// sentinel.
type HTTPError struct {
	Code int
	Body string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("model: http %d: %s", e.Code, e.Body)
}

// NetworkError wraps transport-level failures so callers can tell them
// apart from provider rejections.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("model: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
