// Package nominatim provides a client for the OpenStreetMap Nominatim
// search API. No key required; callers must respect the 1 req/s policy.
package nominatim

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Client performs Nominatim searches.
type Client interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Result is one Nominatim match. Contact details live in extratags when
// the underlying OSM node carries them.
type Result struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Extratags   map[string]string `json:"extratags"`
}

// Website returns the tagged website, if any.
func (r Result) Website() string {
	if w := r.Extratags["website"]; w != "" {
		return w
	}
	return r.Extratags["contact:website"]
}

// Phone returns the tagged phone, if any.
func (r Result) Phone() string {
	if p := r.Extratags["phone"]; p != "" {
		return p
	}
	return r.Extratags["contact:phone"]
}

// Email returns the tagged email, if any.
func (r Result) Email() string {
	if e := r.Extratags["email"]; e != "" {
		return e
	}
	return r.Extratags["contact:email"]
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent overrides the User-Agent (Nominatim requires an
// identifying one).
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a Nominatim client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   defaultBaseURL,
		userAgent: "leadgen-cli/1.0",
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 || limit > 40 {
		limit = 40
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("extratags", "1")
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewHTTPError("nominatim", resp.StatusCode, string(respBody))
	}

	var results []Result
	if err := json.Unmarshal(respBody, &results); err != nil {
		return nil, eris.Wrap(err, "nominatim: unmarshal response")
	}

	return results, nil
}
