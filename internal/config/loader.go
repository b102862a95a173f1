package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RPCTHROTTLE_THROTTLE_RPS.
const EnvPrefix = "RPCTHROTTLE"

var defaults = map[string]any{
	"provider.timeout":      10 * time.Second,
	"provider.user_agent":   "rpcthrottle",
	"throttle.rps":          40,
	"throttle.jitter":       5 * time.Millisecond,
	"retry.max_retries":     10,
	"retry.initial_backoff": 300 * time.Millisecond,
	"retry.max_backoff":     10 * time.Second,
	"scan.blocks":           100,
	"log.level":             "info",
	"log.format":            "text",
	"metrics.addr":          "",
}

// NewViper returns a viper instance reading configFile, if given, and
// RPCTHROTTLE_ environment variables. The provider url also honours
// ETHEREUM_PROVIDER.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("rpcthrottle")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	// Explicit names skip the prefix, so list both.
	_ = v.BindEnv("provider.url", EnvPrefix+"_PROVIDER_URL", "ETHEREUM_PROVIDER")

	return v
}

// Load reads, unmarshals and validates the configuration. A missing
// config file is not an error when none was named explicitly.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
