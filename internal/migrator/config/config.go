package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "catalog-migrator/internal/shared/errors"
	"catalog-migrator/internal/shared/eventbus"
	"catalog-migrator/internal/shared/logger"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// StoreConfig holds the credentials of one store.
type StoreConfig struct {
	Store       string
	AccessToken string
}

// Config holds all configuration for the migrator module.
type Config struct {
	SourceStore            string `env:"SOURCE_SHOPIFY_STORE"`
	SourceAccessToken      string `env:"SOURCE_SHOPIFY_API_PASSWORD"`
	DestinationStore       string `env:"DESTINATION_SHOPIFY_STORE"`
	DestinationAccessToken string `env:"DESTINATION_SHOPIFY_API_PASSWORD"`

	APIVersion  string        `env:"SHOPIFY_API_VERSION" envDefault:"2023-10"`
	RateLimit   float64       `env:"SHOPIFY_RATE_LIMIT" envDefault:"2"`
	RateBurst   int64         `env:"SHOPIFY_RATE_BURST" envDefault:"40"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	ImageRetryDelay time.Duration `env:"IMAGE_RETRY_DELAY" envDefault:"1s"`

	Snapshot SnapshotConfig
	Journal  JournalConfig

	LogBackend string `env:"LOG_BACKEND" envDefault:"logrus"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"text"`
}

// SnapshotConfig selects where --save-data writes source records.
type SnapshotConfig struct {
	Dir      string `env:"SNAPSHOT_DIR" envDefault:"data"`
	Format   string `env:"SNAPSHOT_FORMAT" envDefault:"json"`
	MongoURI string `env:"SNAPSHOT_MONGODB_URI"`
	MongoDB  string `env:"SNAPSHOT_MONGODB_DATABASE" envDefault:"catalog_snapshots"`
}

// JournalConfig configures the optional Redis event journal. An empty Addr
// disables it.
type JournalConfig struct {
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	Stream        string `env:"REDIS_STREAM" envDefault:"catalog-migrator:events"`
	MaxLen        int64  `env:"REDIS_STREAM_MAXLEN" envDefault:"100000"`
	// Retries is how many extra attempts a failed journal append gets.
	Retries    int           `env:"REDIS_JOURNAL_RETRIES" envDefault:"2"`
	RetryDelay time.Duration `env:"REDIS_JOURNAL_RETRY_DELAY" envDefault:"200ms"`
}

// BusConfig is the event bus retry policy for journal subscribers.
func (j JournalConfig) BusConfig() eventbus.BusConfig {
	cfg := eventbus.DefaultBusConfig()
	if j.Retries > 0 {
		cfg.MaxRetries = j.Retries
	}
	if j.RetryDelay > 0 {
		cfg.RetryDelay = j.RetryDelay
	}
	return cfg
}

// Enabled reports whether a journal is configured.
func (j JournalConfig) Enabled() bool {
	return j.RedisAddr != ""
}

// LoadConfig reads .env files (if any) and then the environment.
func LoadConfig(files ...string) (*Config, error) {
	// a missing .env is not an error
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load migrator configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.Snapshot); err != nil {
		return nil, errors.New("failed to load snapshot configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.Journal); err != nil {
		return nil, errors.New("failed to load journal configuration from environment: " + err.Error())
	}
	cfg.Snapshot.Format = strings.ToLower(cfg.Snapshot.Format)
	return cfg, nil
}

// Validate checks that both stores are fully configured.
func (c *Config) Validate() error {
	var missing []string
	for _, v := range []struct{ name, value string }{
		{"SOURCE_SHOPIFY_STORE", c.SourceStore},
		{"SOURCE_SHOPIFY_API_PASSWORD", c.SourceAccessToken},
		{"DESTINATION_SHOPIFY_STORE", c.DestinationStore},
		{"DESTINATION_SHOPIFY_API_PASSWORD", c.DestinationAccessToken},
	} {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required environment variables: " + strings.Join(missing, ", "))
	}
	if c.Snapshot.Format != "json" && c.Snapshot.Format != "yaml" {
		return apperrors.NewValidationError(fmt.Sprintf("SNAPSHOT_FORMAT must be json or yaml, got %q", c.Snapshot.Format))
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return apperrors.NewValidationError("SHOPIFY_RATE_LIMIT and SHOPIFY_RATE_BURST must be positive")
	}
	switch c.LogBackend {
	case "", logger.BackendLogrus, logger.BackendZap:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("LOG_BACKEND must be %s or %s, got %q", logger.BackendLogrus, logger.BackendZap, c.LogBackend))
	}
	return nil
}

// Source returns the source store credentials.
func (c *Config) Source() StoreConfig {
	return StoreConfig{Store: c.SourceStore, AccessToken: c.SourceAccessToken}
}

// Destination returns the destination store credentials.
func (c *Config) Destination() StoreConfig {
	return StoreConfig{Store: c.DestinationStore, AccessToken: c.DestinationAccessToken}
}
