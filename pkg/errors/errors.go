package errors

import (
	"errors"
	"fmt"
)

// Common error types
var (
	// Endpoint errors
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// Controller errors
	ErrAlreadyRunning   = errors.New("dashboard is already running")
	ErrActionInProgress = errors.New("action already in progress")
	ErrClosed           = errors.New("dashboard is closed")

	// Settings errors
	ErrSettingNotFound = errors.New("setting not found")
	ErrSettingInvalid  = errors.New("invalid setting value")
	ErrServerURLEmpty  = errors.New("server url is empty")

	// History errors
	ErrNoHistory = errors.New("no best ip observed yet")
)

// Kind classifies an API failure.
type Kind string

const (
	KindTransport   Kind = "transport"   // network or connection failure
	KindHTTP        Kind = "http"        // non-2xx status
	KindApplication Kind = "application" // 2xx with an { error } payload
	KindMalformed   Kind = "malformed"   // unparseable body
)

// APIError is the single error value surfaced for any failed request.
// Error() returns the human-readable message shown to the user.
type APIError struct {
	Endpoint   string
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s request failed", e.Endpoint)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatusMessage is the fallback message for a non-2xx response without a
// usable error body.
func HTTPStatusMessage(code int) string {
	return fmt.Sprintf("HTTP error! status: %d", code)
}

// SettingError represents a settings-related error
type SettingError struct {
	Key   string
	Value string
	Err   error
}

func (e *SettingError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("setting '%s' (%q): %v", e.Key, e.Value, e.Err)
	}
	return fmt.Sprintf("setting '%s': %v", e.Key, e.Err)
}

func (e *SettingError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err if it wraps an *APIError.
func KindOf(err error) (Kind, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return "", false
}
