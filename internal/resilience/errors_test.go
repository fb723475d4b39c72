package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsTransient_HTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{408, true},
		{404, false},
		{400, false},
		{401, false},
	}
	for _, tt := range tests {
		err := NewHTTPError("places", tt.status, "")
		if got := IsTransient(err); got != tt.want {
			t.Errorf("IsTransient(status %d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestIsTransient_WrappedHTTPError(t *testing.T) {
	err := fmt.Errorf("search springfield: %w", NewHTTPError("yelp", 429, "rate limit"))
	if !IsTransient(err) {
		t.Error("expected wrapped 429 to be transient")
	}
	if StatusCode(err) != 429 {
		t.Errorf("StatusCode = %d, want 429", StatusCode(err))
	}
}

func TestIsTransient_NetworkPatterns(t *testing.T) {
	for _, msg := range []string{
		"read tcp: connection reset by peer",
		"dial tcp: i/o timeout",
		"Get \"https://x\": context deadline exceeded",
	} {
		if !IsTransient(errors.New(msg)) {
			t.Errorf("expected %q to be transient", msg)
		}
	}
}

func TestIsTransient_Syscall(t *testing.T) {
	if !IsTransient(fmt.Errorf("dial: %w", syscall.ECONNREFUSED)) {
		t.Error("expected ECONNREFUSED to be transient")
	}
}

func TestIsTransient_Nil(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error must not be transient")
	}
}

func TestStatusCode_NoHTTPError(t *testing.T) {
	if StatusCode(errors.New("plain")) != 0 {
		t.Error("expected 0 for non-HTTP error")
	}
}

func TestNewHTTPError_TrimsBody(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	err := NewHTTPError("places", 500, string(long))
	if len(err.Body) != 200 {
		t.Errorf("body length = %d, want 200", len(err.Body))
	}
}
