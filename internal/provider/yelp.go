package provider

import (
	"context"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/yelp"
)

// YelpName is the registry/ledger identifier for Yelp Fusion.
const YelpName = "yelp"

// YelpProvider adapts Yelp Fusion business search.
type YelpProvider struct {
	client yelp.Client
	retry  resilience.RetryConfig
}

// NewYelp creates a Yelp provider over the given client.
func NewYelp(client yelp.Client) *YelpProvider {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger(YelpName)
	return &YelpProvider{client: client, retry: cfg}
}

func (p *YelpProvider) Name() string { return YelpName }

// Search maps Fusion businesses to leads. Yelp does not expose the
// business's own website, so those leads rely on later enrichment only
// when another provider supplies the site.
func (p *YelpProvider) Search(ctx context.Context, keyword, location string, limit int) ([]model.Lead, error) {
	resp, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*yelp.SearchResponse, error) {
		return p.client.SearchBusinesses(ctx, keyword, location, limit)
	})
	if err != nil {
		return nil, err
	}

	leads := make([]model.Lead, 0, len(resp.Businesses))
	for _, b := range resp.Businesses {
		if b.Name == "" {
			continue
		}
		phone := b.DisplayPhone
		if phone == "" {
			phone = b.Phone
		}
		leads = append(leads, model.Lead{
			Company: b.Name,
			Address: b.Location.Address(),
			Phone:   phone,
		})
		if len(leads) >= limit {
			break
		}
	}
	return leads, nil
}
