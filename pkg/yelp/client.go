// Package yelp provides a client for the Yelp Fusion business search API.
package yelp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

const defaultBaseURL = "https://api.yelp.com/v3"

// Client performs Yelp Fusion operations.
type Client interface {
	SearchBusinesses(ctx context.Context, term, location string, limit int) (*SearchResponse, error)
}

// SearchResponse is the business search response.
type SearchResponse struct {
	Businesses []Business `json:"businesses"`
	Total      int        `json:"total"`
}

// Business is one Yelp listing.
type Business struct {
	Name         string   `json:"name"`
	DisplayPhone string   `json:"display_phone"`
	Phone        string   `json:"phone"`
	URL          string   `json:"url"`
	Location     Location `json:"location"`
}

// Location holds the listing's address lines.
type Location struct {
	DisplayAddress []string `json:"display_address"`
}

// Address joins the display address into one line.
func (l Location) Address() string {
	return strings.Join(l.DisplayAddress, ", ")
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

// NewClient creates a Yelp Fusion client.
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

func (c *httpClient) SearchBusinesses(ctx context.Context, term, location string, limit int) (*SearchResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 50 // Fusion API maximum per request
	}

	params := url.Values{}
	params.Set("term", term)
	params.Set("location", location)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/businesses/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "yelp: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "yelp: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "yelp: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewHTTPError("yelp", resp.StatusCode, string(respBody))
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "yelp: unmarshal response")
	}

	return &result, nil
}
