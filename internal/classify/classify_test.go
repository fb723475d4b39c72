package classify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  Kind
		retryable bool
	}{
		{"http 404", resilience.NewHTTPError("places", 404, ""), NotFound, false},
		{"no results message", errors.New("No results for this query"), NotFound, false},
		{"not found message", errors.New("place not found"), NotFound, false},
		{"http 429", resilience.NewHTTPError("yelp", 429, "slow down"), RateLimited, true},
		{"rate limit message", errors.New("Rate limit exceeded"), RateLimited, true},
		{"too many requests", errors.New("too many requests, try later"), RateLimited, true},
		{"http 500", resilience.NewHTTPError("foursquare", 500, ""), ApiError, true},
		{"http 503", resilience.NewHTTPError("places", 503, ""), ApiError, true},
		{"deadline exceeded", errors.New("context deadline exceeded"), Timeout, true},
		{"connection reset", errors.New("read: connection reset by peer"), Timeout, true},
		{"http 408", resilience.NewHTTPError("nominatim", 408, ""), Timeout, true},
		{"unknown", errors.New("unexpected JSON shape"), Unknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, "prov", "Austin")
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Contains(t, got.Message, "Austin")
		})
	}
}

func TestClassify_WrappedStatusWins(t *testing.T) {
	// A wrapped 404 classifies as NotFound even when the outer message
	// mentions a timeout-looking token.
	err := fmt.Errorf("call timed out waiting: %w", resilience.NewHTTPError("places", 404, ""))
	got := Classify(err, "places", "Nowhere")
	assert.Equal(t, NotFound, got.Kind)
	assert.False(t, got.Retryable)
}

func TestClassify_NilError(t *testing.T) {
	got := Classify(nil, "places", "Austin")
	assert.False(t, got.Retryable)
}

func TestClassify_RateLimitedScenario(t *testing.T) {
	// Scenario: provider returns "Rate limit exceeded" for Austin.
	got := Classify(errors.New("Rate limit exceeded"), "yelp", "Austin")
	assert.Equal(t, RateLimited, got.Kind)
	assert.True(t, got.Retryable)
}
