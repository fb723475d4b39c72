// Package classify maps raw provider errors onto the retriable/permanent
// split that drives location redistribution.
package classify

import (
	"fmt"
	"strings"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

// Kind is the failure category of a provider call.
type Kind string

const (
	// NotFound means the provider confirmed no businesses exist for the
	// location. Permanent: the location is never re-attempted.
	NotFound Kind = "not_found"
	// RateLimited means the provider rejected the call with 429.
	RateLimited Kind = "rate_limited"
	// Timeout covers deadline and connection-level failures.
	Timeout Kind = "timeout"
	// ApiError covers provider-side 5xx responses.
	ApiError Kind = "api_error"
	// Unknown is anything else; treated as retryable rather than
	// silently dropping the location.
	Unknown Kind = "unknown"
)

// Outcome is the classification of one failed provider/location call.
type Outcome struct {
	Kind      Kind
	Retryable bool
	Message   string
}

var timeoutTokens = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"network error",
	"no such host",
	"broken pipe",
}

var notFoundTokens = []string{
	"no results",
	"not found",
	"zero results",
}

// Classify categorizes a raw provider error. Priority: confirmed-empty
// (404 / "no results") beats everything, then rate limiting, then
// server errors, then network timeouts, then the optimistic default.
func Classify(err error, provider, location string) Outcome {
	if err == nil {
		return Outcome{Kind: Unknown, Retryable: false}
	}

	msg := fmt.Sprintf("%s @ %s: %s", provider, location, err.Error())
	lower := strings.ToLower(err.Error())
	status := resilience.StatusCode(err)

	if status == 404 || containsAny(lower, notFoundTokens) {
		return Outcome{Kind: NotFound, Retryable: false, Message: msg}
	}
	if status == 429 || strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") {
		return Outcome{Kind: RateLimited, Retryable: true, Message: msg}
	}
	if status >= 500 && status <= 599 {
		return Outcome{Kind: ApiError, Retryable: true, Message: msg}
	}
	if status == 408 || containsAny(lower, timeoutTokens) {
		return Outcome{Kind: Timeout, Retryable: true, Message: msg}
	}
	return Outcome{Kind: Unknown, Retryable: true, Message: msg}
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
