// Package foursquare provides a client for the Foursquare Places v3
// search API.
package foursquare

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

const defaultBaseURL = "https://api.foursquare.com/v3"

// Client performs Foursquare place searches.
type Client interface {
	SearchPlaces(ctx context.Context, query, near string, limit int) (*SearchResponse, error)
}

// SearchResponse is the place search response.
type SearchResponse struct {
	Results []Place `json:"results"`
}

// Place is one Foursquare venue.
type Place struct {
	Name     string   `json:"name"`
	Tel      string   `json:"tel"`
	Email    string   `json:"email"`
	Website  string   `json:"website"`
	Location Location `json:"location"`
}

// Location holds the venue's address.
type Location struct {
	FormattedAddress string `json:"formatted_address"`
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

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Foursquare Places client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchPlaces(ctx context.Context, query, near string, limit int) (*SearchResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("near", near)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", "name,location,tel,email,website")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: create request")
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewHTTPError("foursquare", resp.StatusCode, string(respBody))
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "foursquare: unmarshal response")
	}

	return &result, nil
}
