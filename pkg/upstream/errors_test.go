package upstream

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestUpstreamError(t *testing.T) {
	t.Run("with status code", func(t *testing.T) {
		err := &UpstreamError{
			Model:      "gemini-2.5-pro",
			StatusCode: 500,
			Message:    "internal error",
		}

		expected := `upstream error for model "gemini-2.5-pro" (status 500): internal error`
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("without status code", func(t *testing.T) {
		err := &UpstreamError{
			Model:   "gemini-2.5-pro",
			Message: "connection refused",
		}

		expected := `upstream error for model "gemini-2.5-pro": connection refused`
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := &UpstreamError{
			Model:   "gemini-2.5-pro",
			Message: "request failed",
			Cause:   cause,
		}

		if !errors.Is(err, cause) {
			t.Error("expected error to wrap cause")
		}
	})
}

func TestRateLimitError(t *testing.T) {
	t.Run("with retry after", func(t *testing.T) {
		err := &RateLimitError{
			Model:      "gemini-2.5-pro",
			RetryAfter: 30 * time.Second,
			Message:    "quota exhausted",
		}

		expected := `model "gemini-2.5-pro" quota exceeded (retry after 30s): quota exhausted`
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("without retry after", func(t *testing.T) {
		err := &RateLimitError{
			Model:   "gemini-2.5-pro",
			Message: "quota exhausted",
		}

		expected := `model "gemini-2.5-pro" quota exceeded: quota exhausted`
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{
		Model:   "gemini-2.5-flash",
		Timeout: 15 * time.Second,
	}

	expected := `model "gemini-2.5-flash" request timeout after 15s`
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestIsQuotaExceeded(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", &RateLimitError{Model: "m"}, true},
		{"wrapped rate limit", fmt.Errorf("open stream: %w", &RateLimitError{Model: "m"}), true},
		{"timeout", &TimeoutError{Model: "m"}, false},
		{"generic", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsQuotaExceeded(tt.err); got != tt.want {
				t.Errorf("IsQuotaExceeded(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(&TimeoutError{Model: "m", Timeout: time.Second}) {
		t.Error("expected timeout error to be detected")
	}

	wrapped := fmt.Errorf("generate: %w", &TimeoutError{Model: "m"})
	if !IsTimeout(wrapped) {
		t.Error("expected wrapped timeout error to be detected")
	}

	if IsTimeout(&RateLimitError{Model: "m"}) {
		t.Error("rate limit error should not be a timeout")
	}
}
