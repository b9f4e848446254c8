package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestErrorString(t *testing.T) {
	err := InvalidInput("op", nil, "test message")

	if err.Code != http.StatusBadRequest {
		t.Errorf("expected code %d, got %d", http.StatusBadRequest, err.Code)
	}

	if err.Error() != "test message" {
		t.Errorf("expected error string 'test message', got '%s'", err.Error())
	}
}

func TestErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Upload("Uploader.Upload", cause)

	expected := "upload failed: connection reset"
	if err.Error() != expected {
		t.Errorf("expected '%s', got '%s'", expected, err.Error())
	}
	if err.Unwrap() != cause {
		t.Errorf("expected Unwrap to return the cause")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{
			name:     "poll timeout",
			err:      PollTimeout("op", "files/abc", 6*time.Second),
			expected: KindPollTimeout,
		},
		{
			name:     "wrapped generation error",
			err:      fmt.Errorf("invoke: %w", Generation("op", fmt.Errorf("quota"))),
			expected: KindGeneration,
		},
		{
			name:     "non-custom error",
			err:      fmt.Errorf("standard error"),
			expected: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.expected {
				t.Errorf("KindOf() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(NotFound("op", nil, "missing")) {
		t.Error("expected not found error to be detected")
	}
	if IsNotFound(Internal("op", nil, "boom")) {
		t.Error("internal error reported as not found")
	}
	if IsNotFound(nil) {
		t.Error("nil reported as not found")
	}
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"configuration", Configuration("op", "no key"), http.StatusServiceUnavailable},
		{"missing input", MissingInput("op", "no file"), http.StatusBadRequest},
		{"upload", Upload("op", fmt.Errorf("x")), http.StatusBadGateway},
		{"poll timeout", PollTimeout("op", "files/a", time.Second), http.StatusGatewayTimeout},
		{"asset failed", AssetFailed("op", "files/a"), http.StatusBadGateway},
		{"plain error", fmt.Errorf("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.expected {
				t.Errorf("expected code %d, got %d", tt.expected, got)
			}
		})
	}
}
