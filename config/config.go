// Package config provides environment-based configuration for scimly.
//
// Configuration is loaded from environment variables using Viper, with sensible
// defaults for development. This package handles database connection settings,
// logging levels, the server port, tenant configuration location, credential
// material for the routing layer, and process-wide rate and paging defaults.
//
// # Environment Variables
//
//   - DB_TYPE: Database type (sqlite, postgres, mysql). Default: sqlite
//   - DSN: Database connection string. Default: scimly.db
//   - SKIP_AUTO_MIGRATE: Skip automatic database migrations. Default: false
//   - LOG_LEVEL: Logging level (debug, info, warn, error). Default: info
//   - PORT: HTTP server port. Default: 8080
//   - TENANTS_PATH: Path to the tenant configuration document file. Optional;
//     tenants without an entry run with defaults.
//   - API_KEYS: Comma-separated static API keys accepted by the routing layer.
//   - JWT_SECRET: HMAC secret for bearer-token credentials. Optional.
//   - RATE_LIMIT_CREATE / _READ / _UPDATE / _DELETE: Requests allowed per
//     operation class within one rate window.
//   - RATE_LIMIT_WINDOW_SECONDS: Length of the fixed rate window. Default: 60
//   - DEFAULT_PAGE_SIZE: Page size when the caller omits count. Default: 50
//   - MAX_PAGE_SIZE: Upper clamp for requested page sizes. Default: 200
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DBType          string `mapstructure:"DB_TYPE"` // sqlite, postgres, mysql
	DSN             string `mapstructure:"DSN"`
	SkipAutoMigrate bool   `mapstructure:"SKIP_AUTO_MIGRATE"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	Port            int    `mapstructure:"PORT"`

	TenantsPath string `mapstructure:"TENANTS_PATH"`

	APIKeys   []string `mapstructure:"API_KEYS"`
	JWTSecret string   `mapstructure:"JWT_SECRET"`

	RateLimitCreate        int `mapstructure:"RATE_LIMIT_CREATE"`
	RateLimitRead          int `mapstructure:"RATE_LIMIT_READ"`
	RateLimitUpdate        int `mapstructure:"RATE_LIMIT_UPDATE"`
	RateLimitDelete        int `mapstructure:"RATE_LIMIT_DELETE"`
	RateLimitWindowSeconds int `mapstructure:"RATE_LIMIT_WINDOW_SECONDS"`

	DefaultPageSize int `mapstructure:"DEFAULT_PAGE_SIZE"`
	MaxPageSize     int `mapstructure:"MAX_PAGE_SIZE"`
}

// RateWindow returns the configured fixed-window duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("DB_TYPE", "sqlite")
	viper.SetDefault("DSN", "scimly.db")
	viper.SetDefault("SKIP_AUTO_MIGRATE", false)
	viper.SetDefault("TENANTS_PATH", "")
	viper.SetDefault("API_KEYS", []string{})
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("RATE_LIMIT_CREATE", 60)
	viper.SetDefault("RATE_LIMIT_READ", 600)
	viper.SetDefault("RATE_LIMIT_UPDATE", 60)
	viper.SetDefault("RATE_LIMIT_DELETE", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("DEFAULT_PAGE_SIZE", 50)
	viper.SetDefault("MAX_PAGE_SIZE", 200)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
