// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Common application errors.
var (
	// Backend errors.
	ErrAuthExpired   = errors.New("authentication expired")
	ErrTransientHTTP = errors.New("transient http error")
	ErrNetwork       = errors.New("network error")

	// Notification provider errors.
	ErrExternalAPI = errors.New("external api error")

	// Persistence errors.
	ErrNotFound       = errors.New("not found")
	ErrMalformedState = errors.New("malformed persisted state")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// HTTPError is returned for non-2xx backend responses. RetryAfter carries
// the server's Retry-After hint, zero when absent.
type HTTPError struct {
	Method     string
	URL        string
	Body       string
	Status     int
	RetryAfter time.Duration
}

// ParseRetryAfter reads a Retry-After header given in seconds. HTTP-date
// values and garbage yield zero.
func ParseRetryAfter(value string) time.Duration {
	secs, err := strconv.Atoi(value)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.Status)
}

// Unwrap maps the status onto the error taxonomy.
func (e *HTTPError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrAuthExpired
	}
	return ErrTransientHTTP
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrNetwork) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status >= http.StatusInternalServerError
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
