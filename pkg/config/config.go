package config

import (
	"time"

	"github.com/MojoAuth/connector-identity/pkg/canonical"
	"github.com/MojoAuth/connector-identity/pkg/logger"
	"github.com/MojoAuth/connector-identity/pkg/redis"
)

// Config holds runtime configuration for the connector identity service.
type Config struct {
	AppEnv string `mapstructure:"-"`

	App       AppConfig       `mapstructure:"app"`
	Log       logger.Config   `mapstructure:"log"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Redis     redis.Config    `mapstructure:"redis"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Canonical CanonicalConfig `mapstructure:"canonical"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// LedgerConfig controls the Redis record of computed instance ids.
type LedgerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	TTL       time.Duration `mapstructure:"ttl" validate:"gte=0"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// CanonicalConfig holds serializer settings for the canonical command.
type CanonicalConfig struct {
	Indent     int `mapstructure:"indent" validate:"gte=0,lte=10"`
	MaxDepth   int `mapstructure:"max_depth" validate:"gte=0"`
	MaxBreadth int `mapstructure:"max_breadth" validate:"gte=0"`
}

// Options converts the section into serializer options.
func (c CanonicalConfig) Options() canonical.Options {
	opts := canonical.DefaultOptions()
	opts.Indent = canonical.Spaces(c.Indent)
	opts.MaximumDepth = c.MaxDepth
	opts.MaximumBreadth = c.MaxBreadth
	return opts
}
