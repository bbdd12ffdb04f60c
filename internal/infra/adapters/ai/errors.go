package ai

import (
	"errors"
	"fmt"
)

// ErrBadResponse marks a backend reply that did not carry the expected result
// shape. Such replies are never retried.
var ErrBadResponse = errors.New("unexpected response shape")

// APIError is a non-2xx reply from the generation backend.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("backend http %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("backend http %d", e.Status)
}

// Retryable reports whether the status indicates a transient condition:
// rate limiting, request timeout, or a server-side error.
func (e *APIError) Retryable() bool {
	return e.Status == 429 || e.Status == 408 || e.Status >= 500
}

// isRetryable classifies an attempt failure. Transport-level errors (timeouts,
// resets) are transient; client errors and unparseable replies are permanent.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	if errors.Is(err, ErrBadResponse) {
		return false
	}
	return true
}
