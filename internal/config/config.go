// Package config provides configuration loading for the rpcthrottle CLI.
package config

import (
	"log/slog"
	"time"
)

// Config is the CLI configuration, read from an optional YAML file and
// overridden by RPCTHROTTLE_ environment variables.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ProviderConfig describes the JSON-RPC endpoint.
// URL falls back to ETHEREUM_PROVIDER when RPCTHROTTLE_PROVIDER_URL is unset.
type ProviderConfig struct {
	URL       string        `mapstructure:"url" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
	UserAgent string        `mapstructure:"user_agent"`
}

// ThrottleConfig sets the request quota.
type ThrottleConfig struct {
	RPS    uint32        `mapstructure:"rps" validate:"gt=0"`
	Jitter time.Duration `mapstructure:"jitter" validate:"gte=0"`
}

// RetryConfig sets the retry policy. MaxRetries of zero disables retries.
type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" validate:"gt=0"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" validate:"gtefield=InitialBackoff"`
}

// ScanConfig sets how many of the most recent blocks the CLI fetches.
type ScanConfig struct {
	Blocks uint64 `mapstructure:"blocks" validate:"gt=0,lte=10000"`
}

// LogConfig sets the log level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// MetricsConfig enables a Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// SlogLevel returns the configured level as a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
