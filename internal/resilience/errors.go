// Package resilience provides retry, circuit breaker, and error
// categorization for external provider calls.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// HTTPError carries a non-2xx status from a provider API so callers can
// classify the failure without string matching.
type HTTPError struct {
	StatusCode int
	Provider   string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
}

// NewHTTPError builds an HTTPError, trimming the body to a loggable size.
func NewHTTPError(provider string, statusCode int, body string) *HTTPError {
	body = strings.TrimSpace(body)
	if len(body) > 200 {
		body = body[:200]
	}
	return &HTTPError{StatusCode: statusCode, Provider: provider, Body: body}
}

// StatusCode extracts the HTTP status from an error chain, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// IsTransient reports whether an error is safe to retry: a transient
// HTTP status (429/5xx/408), a network timeout, a connection-level
// failure, or a message matching common transient patterns from HTTP
// clients.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if code := StatusCode(err); code != 0 {
		return IsTransientHTTPStatus(code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"context deadline exceeded",
	"server closed idle connection",
	"transport connection broken",
}

// IsTransientHTTPStatus reports whether the status code indicates a
// server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
