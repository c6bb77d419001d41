// Package config loads application configuration from YAML files and
// environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/jonesrussell/harvester/internal/logger"
	"github.com/jonesrussell/harvester/internal/search"
	"github.com/jonesrussell/harvester/internal/storage"
)

// envPrefix namespaces the environment variables read by the loader, so
// HARVESTER_DATABASE_HOST overrides database.host.
const envPrefix = "HARVESTER"

// Server defaults.
const (
	defaultServerAddress = ":8080"
	defaultReadTimeout   = "15s"
	defaultWriteTimeout  = "15s"
	defaultIdleTimeout   = "60s"
)

// AppConfig identifies the running application.
type AppConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

// ServerConfig holds the admin HTTP server configuration.
type ServerConfig struct {
	Address      string `yaml:"address" mapstructure:"address"`
	ReadTimeout  string `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  string `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// CrawlerConfig holds fetch-backend tuning shared by all crawls.
type CrawlerConfig struct {
	// UserAgent is sent on every request, both backends.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	// Headless controls whether the browser backend runs without a display.
	Headless bool `yaml:"headless" mapstructure:"headless"`
	// SessionPoolCap bounds the number of idle browser tabs kept warm.
	SessionPoolCap int `yaml:"session_pool_cap" mapstructure:"session_pool_cap"`
	// DefaultTimeoutMillis and DefaultWaitMillis seed per-run options
	// when the caller leaves them unset.
	DefaultTimeoutMillis int `yaml:"default_timeout_ms" mapstructure:"default_timeout_ms"`
	DefaultWaitMillis    int `yaml:"default_wait_ms" mapstructure:"default_wait_ms"`
}

// Config is the root application configuration.
type Config struct {
	App           AppConfig      `yaml:"app" mapstructure:"app"`
	Logging       logger.Config  `yaml:"logging" mapstructure:"logging"`
	Server        ServerConfig   `yaml:"server" mapstructure:"server"`
	Database      storage.Config `yaml:"database" mapstructure:"database"`
	Elasticsearch search.Config  `yaml:"elasticsearch" mapstructure:"elasticsearch"`
	Crawler       CrawlerConfig  `yaml:"crawler" mapstructure:"crawler"`
}

// Load reads configuration from the given file path (or the default
// search path when empty), applying environment overrides on top. A
// missing config file is not an error; defaults and environment
// variables alone are enough to run.
func Load(path string) (*Config, error) {
	// .env is optional; absence is the normal production case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		// Best effort when no explicit path was given.
		_ = v.ReadInConfig()
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults applies production-safe defaults for every section.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app", map[string]any{
		"name":        "harvester",
		"environment": "production",
		"debug":       false,
	})

	v.SetDefault("logging", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "json",
	})

	v.SetDefault("server", map[string]any{
		"address":       defaultServerAddress,
		"read_timeout":  defaultReadTimeout,
		"write_timeout": defaultWriteTimeout,
		"idle_timeout":  defaultIdleTimeout,
	})

	v.SetDefault("database", map[string]any{
		"host":     "localhost",
		"port":     "5432",
		"user":     "harvester",
		"password": "",
		"dbname":   "harvester",
		"sslmode":  "disable",
	})

	v.SetDefault("elasticsearch", map[string]any{
		"enabled":   false,
		"addresses": []string{"http://127.0.0.1:9200"},
		"index":     search.DefaultIndex,
	})

	v.SetDefault("crawler", map[string]any{
		"user_agent":         defaultUserAgent,
		"headless":           true,
		"session_pool_cap":   defaultSessionPoolCap,
		"default_timeout_ms": defaultTimeoutMillis,
		"default_wait_ms":    defaultWaitMillis,
	})
}

// Crawler defaults. Timeout and wait mirror the per-run option defaults
// so a bare config behaves the same as a bare crawl request.
const (
	defaultUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultSessionPoolCap = 5
	defaultTimeoutMillis  = 60000
	defaultWaitMillis     = 2000
)
