package provider

import (
	"context"
	"fmt"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/places"
)

// PlacesName is the registry/ledger identifier for Google Places.
const PlacesName = "places"

// PlacesProvider adapts the Google Places text search to the common
// provider interface.
type PlacesProvider struct {
	client places.Client
	retry  resilience.RetryConfig
}

// NewPlaces creates a Places provider over the given client.
func NewPlaces(client places.Client) *PlacesProvider {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger(PlacesName)
	return &PlacesProvider{client: client, retry: cfg}
}

func (p *PlacesProvider) Name() string { return PlacesName }

// Search runs a text search scoped to the location.
func (p *PlacesProvider) Search(ctx context.Context, keyword, location string, limit int) ([]model.Lead, error) {
	req := places.TextSearchRequest{
		TextQuery: fmt.Sprintf("%s in %s", keyword, location),
		PageSize:  limit,
	}

	resp, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*places.TextSearchResponse, error) {
		return p.client.TextSearch(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	leads := make([]model.Lead, 0, len(resp.Places))
	for _, pl := range resp.Places {
		if pl.DisplayName.Text == "" {
			continue
		}
		leads = append(leads, model.Lead{
			Company: pl.DisplayName.Text,
			Address: pl.FormattedAddress,
			Phone:   pl.NationalPhoneNumber,
			Website: pl.WebsiteURI,
		})
		if len(leads) >= limit {
			break
		}
	}
	return leads, nil
}
