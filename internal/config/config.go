// Package config loads the host configuration from a YAML file with
// environment variable overrides, so secrets like the Netatmo
// credentials never have to live in the file itself.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sverreng/dtss/internal/repository/netatmo"
	"github.com/sverreng/dtss/internal/repository/store"
)

// Config holds all configuration for the DTSS host.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Router       RouterConfig       `mapstructure:"router"`
	Repositories RepositoriesConfig `mapstructure:"repositories"`
	Collection   CollectionConfig   `mapstructure:"collection"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           int     `mapstructure:"port"`
	Host           string  `mapstructure:"host"`
	CacheSize      int     `mapstructure:"cache_size"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type RouterConfig struct {
	RepoTimeout time.Duration `mapstructure:"repo_timeout"`
}

// RepositoriesConfig is the scheme-to-settings mapping the registry is
// built from. A scheme with no config block is not instantiated.
type RepositoriesConfig struct {
	Netatmo *netatmo.Config `mapstructure:"netatmo"`
	Store   *store.Config   `mapstructure:"store"`

	// Extra catches configured schemes this build does not know.
	// They are skipped with a logged warning rather than failing
	// startup, so a partial deployment can share one config file.
	Extra map[string]interface{} `mapstructure:",remain"`
}

type CollectionConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	TsIDs     []string      `mapstructure:"ts_ids"`
	Cron      string        `mapstructure:"cron"`
	Window    time.Duration `mapstructure:"window"`
	Bootstrap bool          `mapstructure:"bootstrap"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file and the environment.
// ${VAR} references in the file are expanded before parsing, and every
// key can additionally be overridden with a DTSS_ variable, e.g.
// DTSS_SERVER_PORT.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("dtss")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(strings.NewReader(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 20001)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.cache_size", 1000)
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_limit_burst", 10)

	v.SetDefault("router.repo_timeout", "30s")

	v.SetDefault("collection.enabled", false)
	v.SetDefault("collection.cron", "*/5 * * * *")
	v.SetDefault("collection.window", "5m")
	v.SetDefault("collection.bootstrap", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
