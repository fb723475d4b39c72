package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/nominatim"
)

// NominatimName is the registry/ledger identifier for OSM Nominatim.
const NominatimName = "nominatim"

// NominatimProvider adapts OpenStreetMap's Nominatim search. Free, but
// sparse on contact data — most of its leads get filled by enrichment.
type NominatimProvider struct {
	client nominatim.Client
	retry  resilience.RetryConfig
}

// NewNominatim creates a Nominatim provider over the given client.
func NewNominatim(client nominatim.Client) *NominatimProvider {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger(NominatimName)
	return &NominatimProvider{client: client, retry: cfg}
}

func (p *NominatimProvider) Name() string { return NominatimName }

// Search queries "keyword in location" and maps tagged OSM nodes.
func (p *NominatimProvider) Search(ctx context.Context, keyword, location string, limit int) ([]model.Lead, error) {
	query := fmt.Sprintf("%s in %s", keyword, location)

	results, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) ([]nominatim.Result, error) {
		return p.client.Search(ctx, query, limit)
	})
	if err != nil {
		return nil, err
	}

	leads := make([]model.Lead, 0, len(results))
	for _, r := range results {
		name := r.Name
		if name == "" {
			// display_name leads with the node name before the address.
			if i := strings.Index(r.DisplayName, ","); i > 0 {
				name = r.DisplayName[:i]
			}
		}
		if name == "" {
			continue
		}
		address := r.DisplayName
		if i := strings.Index(r.DisplayName, ","); i > 0 && r.Name == "" {
			address = strings.TrimSpace(r.DisplayName[i+1:])
		}
		leads = append(leads, model.Lead{
			Company: name,
			Address: address,
			Phone:   r.Phone(),
			Email:   r.Email(),
			Website: r.Website(),
		})
		if len(leads) >= limit {
			break
		}
	}
	return leads, nil
}
