// Package errors defines stable error codes for statusgen failure modes.
package errors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// MissingCredentials indicates a required API key env var is unset
	MissingCredentials ErrorCode = "MISSING_CREDENTIALS"
	// UpstreamUnavailable indicates a tracker or commit host is unreachable
	UpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// RateLimited indicates an upstream rejected us for request volume
	RateLimited ErrorCode = "RATE_LIMITED"
	// Timeout indicates an outbound call timed out
	Timeout ErrorCode = "TIMEOUT"
	// SummarizerFailed indicates the external summarizer returned an error
	SummarizerFailed ErrorCode = "SUMMARIZER_FAILED"
	// InvalidRequest indicates bad caller-supplied parameters
	InvalidRequest ErrorCode = "INVALID_REQUEST"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// StatusError carries a stable code plus an opaque tracking id. The tracking
// id is what untrusted callers see; the wrapped cause stays server-side.
type StatusError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	TrackingID string    `json:"trackingId"`
	cause      error
}

// New creates a StatusError with a fresh tracking id.
func New(code ErrorCode, message string, cause error) *StatusError {
	return &StatusError{
		Code:       code,
		Message:    message,
		TrackingID: uuid.NewString(),
		cause:      cause,
	}
}

// Error implements the error interface
func (e *StatusError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *StatusError) Unwrap() error {
	return e.cause
}

// Public returns the caller-safe rendering: generic message plus tracking id,
// never the internal error text.
func (e *StatusError) Public() string {
	return fmt.Sprintf("%s (tracking id %s)", publicMessages[e.Code], e.TrackingID)
}

var publicMessages = map[ErrorCode]string{
	MissingCredentials:  "required credentials are not configured",
	UpstreamUnavailable: "an upstream service is unavailable",
	RateLimited:         "an upstream service is rate limiting requests",
	Timeout:             "an upstream request timed out",
	SummarizerFailed:    "report summarization failed",
	InvalidRequest:      "the request parameters are invalid",
	InternalError:       "an internal error occurred",
}

// PublicMessage returns the caller-safe message for a code.
func PublicMessage(code ErrorCode) string {
	if msg, ok := publicMessages[code]; ok {
		return msg
	}
	return publicMessages[InternalError]
}

// CodeOf extracts the ErrorCode from err, or InternalError.
func CodeOf(err error) ErrorCode {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return InternalError
}

// AsStatus returns err as a *StatusError, wrapping it as InternalError when
// it is anything else.
func AsStatus(err error) *StatusError {
	var se *StatusError
	if errors.As(err, &se) {
		return se
	}
	return New(InternalError, "unexpected error", err)
}
