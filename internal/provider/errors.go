package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnknownProvider is returned for names outside the supported set.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnavailable is returned when a backend cannot take requests.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrMissingAPIKey is returned when a backend that needs a key has none.
	ErrMissingAPIKey = errors.New("api key required")
)

// Error describes a failed backend call.
type Error struct {
	Provider Kind
	Op       string
	Status   int // HTTP status when the backend answered, 0 otherwise
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Temporary reports whether the call may succeed if repeated.
func (e *Error) Temporary() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// haltError stops retries and fallback once part of a reply reached the caller.
type haltError struct{ err error }

func (h haltError) Error() string { return h.err.Error() }
func (h haltError) Unwrap() error { return h.err }

func retryable(err error) bool {
	var h haltError
	switch {
	case err == nil:
		return false
	case errors.As(err, &h):
		return false
	case errors.Is(err, ErrMissingAPIKey), errors.Is(err, context.Canceled):
		return false
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Temporary()
	}
	return true
}
