package provider

import (
	"context"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/foursquare"
)

// FoursquareName is the registry/ledger identifier for Foursquare.
const FoursquareName = "foursquare"

// FoursquareProvider adapts the Foursquare Places v3 search.
type FoursquareProvider struct {
	client foursquare.Client
	retry  resilience.RetryConfig
}

// NewFoursquare creates a Foursquare provider over the given client.
func NewFoursquare(client foursquare.Client) *FoursquareProvider {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger(FoursquareName)
	return &FoursquareProvider{client: client, retry: cfg}
}

func (p *FoursquareProvider) Name() string { return FoursquareName }

// Search maps Foursquare venues to leads.
func (p *FoursquareProvider) Search(ctx context.Context, keyword, location string, limit int) ([]model.Lead, error) {
	resp, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*foursquare.SearchResponse, error) {
		return p.client.SearchPlaces(ctx, keyword, location, limit)
	})
	if err != nil {
		return nil, err
	}

	leads := make([]model.Lead, 0, len(resp.Results))
	for _, v := range resp.Results {
		if v.Name == "" {
			continue
		}
		leads = append(leads, model.Lead{
			Company: v.Name,
			Address: v.Location.FormattedAddress,
			Phone:   v.Tel,
			Email:   v.Email,
			Website: v.Website,
		})
		if len(leads) >= limit {
			break
		}
	}
	return leads, nil
}
