package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/orchestrator"
	"github.com/sells-group/leadgen-cli/internal/provider"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/foursquare"
	"github.com/sells-group/leadgen-cli/pkg/nominatim"
	"github.com/sells-group/leadgen-cli/pkg/places"
	"github.com/sells-group/leadgen-cli/pkg/yelp"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "leadgen.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// buildRegistry wires the enabled provider adapters from config.
func buildRegistry() *provider.Registry {
	reg := provider.NewRegistry()

	if cfg.Places.Enabled && cfg.Places.Key != "" {
		client := places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))
		reg.Register(provider.NewPlaces(client))
	}
	if cfg.Yelp.Enabled && cfg.Yelp.Key != "" {
		client := yelp.NewClient(cfg.Yelp.Key, yelp.WithBaseURL(cfg.Yelp.BaseURL))
		reg.Register(provider.NewYelp(client))
	}
	if cfg.Foursquare.Enabled && cfg.Foursquare.Key != "" {
		client := foursquare.NewClient(cfg.Foursquare.Key, foursquare.WithBaseURL(cfg.Foursquare.BaseURL))
		reg.Register(provider.NewFoursquare(client))
	}
	if cfg.Nominatim.Enabled {
		client := nominatim.NewClient(
			nominatim.WithBaseURL(cfg.Nominatim.BaseURL),
			nominatim.WithUserAgent(cfg.Nominatim.UserAgent),
		)
		reg.Register(provider.NewNominatim(client))
	}

	return reg
}

func orchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		MaxRounds:   cfg.Orchestrator.MaxRounds,
		TimeBudget:  time.Duration(cfg.Orchestrator.TimeBudgetSecs) * time.Second,
		CallTimeout: time.Duration(cfg.Orchestrator.CallTimeoutSecs) * time.Second,
		Cooldown:    time.Duration(cfg.Orchestrator.CooldownSecs) * time.Second,
		ProviderDelays: map[string]time.Duration{
			provider.PlacesName:     time.Duration(cfg.Places.DelayMS) * time.Millisecond,
			provider.YelpName:       time.Duration(cfg.Yelp.DelayMS) * time.Millisecond,
			provider.FoursquareName: time.Duration(cfg.Foursquare.DelayMS) * time.Millisecond,
			provider.NominatimName:  time.Duration(cfg.Nominatim.DelayMS) * time.Millisecond,
		},
	}
}
