package upstream

import (
	"errors"
	"fmt"
	"time"
)

// UpstreamError represents a general upstream API failure.
// It includes the model name, HTTP status code, and underlying error.
type UpstreamError struct {
	// Model is the model that was being called when the error occurred
	Model string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is the error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream error for model %q (status %d): %s", e.Model, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error for model %q: %s", e.Model, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// RateLimitError represents a quota-exceeded error (HTTP 429).
// It includes the retry-after duration if provided by the upstream.
type RateLimitError struct {
	// Model is the model that was rate limited
	Model string

	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	// Message is the error message from the upstream
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("model %q quota exceeded (retry after %s): %s",
			e.Model, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("model %q quota exceeded: %s", e.Model, e.Message)
}

// TimeoutError represents a request that exceeded its deadline.
type TimeoutError struct {
	// Model is the model that was being called when the timeout occurred
	Model string

	// Timeout is the configured deadline
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("model %q request timeout after %s", e.Model, e.Timeout)
}

// ParseError represents a malformed upstream response.
type ParseError struct {
	// Model is the model that returned the malformed response
	Model string

	// RawResponse is the raw response body that failed to parse
	RawResponse string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse response from model %q: %v", e.Model, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// IsQuotaExceeded reports whether err is (or wraps) a RateLimitError.
func IsQuotaExceeded(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
