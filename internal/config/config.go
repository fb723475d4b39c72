package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Places       ProviderConfig     `yaml:"places" mapstructure:"places"`
	Yelp         ProviderConfig     `yaml:"yelp" mapstructure:"yelp"`
	Foursquare   ProviderConfig     `yaml:"foursquare" mapstructure:"foursquare"`
	Nominatim    NominatimConfig    `yaml:"nominatim" mapstructure:"nominatim"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Enrich       EnrichConfig       `yaml:"enrich" mapstructure:"enrich"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. Driver is "sqlite" or
// "postgres"; Path applies to sqlite, DatabaseURL to postgres.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ProviderConfig holds one search provider's credentials and pacing.
type ProviderConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	DelayMS int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

// NominatimConfig configures the keyless OSM provider. Its usage
// policy requires an identifying User-Agent and strict pacing.
type NominatimConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	DelayMS   int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
}

// OrchestratorConfig bounds a scraping run.
type OrchestratorConfig struct {
	MaxRounds       int `yaml:"max_rounds" mapstructure:"max_rounds"`
	TimeBudgetSecs  int `yaml:"time_budget_secs" mapstructure:"time_budget_secs"`
	CallTimeoutSecs int `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	CooldownSecs    int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// EnrichConfig configures website contact enrichment.
type EnrichConfig struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the status API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "leadgen.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.delay_ms", 400)
	v.SetDefault("places.enabled", true)
	v.SetDefault("yelp.base_url", "https://api.yelp.com/v3")
	v.SetDefault("yelp.delay_ms", 400)
	v.SetDefault("yelp.enabled", true)
	v.SetDefault("foursquare.base_url", "https://api.foursquare.com/v3")
	v.SetDefault("foursquare.delay_ms", 400)
	v.SetDefault("foursquare.enabled", true)
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "leadgen-cli/1.0")
	v.SetDefault("nominatim.delay_ms", 2000)
	v.SetDefault("nominatim.enabled", true)
	v.SetDefault("orchestrator.max_rounds", 3)
	v.SetDefault("orchestrator.time_budget_secs", 840)
	v.SetDefault("orchestrator.call_timeout_secs", 30)
	v.SetDefault("orchestrator.cooldown_secs", 2)
	v.SetDefault("enrich.enabled", true)
	v.SetDefault("enrich.timeout_secs", 15)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the fields required for the given run mode are
// set. Problems are accumulated so the operator sees them all at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "scrape":
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres driver")
			}
		case "sqlite":
			if c.Store.Path == "" {
				problems = append(problems, "store.path is required for the sqlite driver")
			}
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Places.Enabled && c.Places.Key == "" {
			problems = append(problems, "places.key is required when places is enabled")
		}
		if c.Yelp.Enabled && c.Yelp.Key == "" {
			problems = append(problems, "yelp.key is required when yelp is enabled")
		}
		if c.Foursquare.Enabled && c.Foursquare.Key == "" {
			problems = append(problems, "foursquare.key is required when foursquare is enabled")
		}
		if !c.Places.Enabled && !c.Yelp.Enabled && !c.Foursquare.Enabled && !c.Nominatim.Enabled {
			problems = append(problems, "at least one provider must be enabled")
		}
		if c.Orchestrator.MaxRounds < 1 {
			problems = append(problems, "orchestrator.max_rounds must be >= 1")
		}
		if c.Orchestrator.TimeBudgetSecs < 1 {
			problems = append(problems, "orchestrator.time_budget_secs must be >= 1")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
