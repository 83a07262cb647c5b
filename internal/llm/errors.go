package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError is returned when a provider cannot be constructed.
// It is never retried.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Provider, e.Reason)
}

// BackendErrorKind classifies why a backend call failed
type BackendErrorKind string

const (
	BackendTransport     BackendErrorKind = "transport"
	BackendAuth          BackendErrorKind = "authentication"
	BackendRateLimited   BackendErrorKind = "rate_limited"
	BackendContentSafety BackendErrorKind = "content_safety"
	BackendEmptyResponse BackendErrorKind = "empty_response"
)

// BackendError wraps every failure of a single Send call
type BackendError struct {
	Provider   string
	Kind       BackendErrorKind
	StatusCode int    // HTTP status when the backend answered, 0 otherwise
	Reason     string // Backend-reported cause (block reason, finish reason, ...)
	Err        error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%s backend error (%s)", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" HTTP %d", e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsContentSafety reports whether err is a backend content-safety rejection
func IsContentSafety(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Kind == BackendContentSafety
}

// kindForStatus maps an HTTP status code to a BackendErrorKind
func kindForStatus(code int) BackendErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return BackendAuth
	case http.StatusTooManyRequests:
		return BackendRateLimited
	default:
		return BackendTransport
	}
}

func newBackendError(provider string, kind BackendErrorKind, err error) *BackendError {
	return &BackendError{Provider: provider, Kind: kind, Err: err}
}
