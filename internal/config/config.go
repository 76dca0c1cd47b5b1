package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRequests int           `mapstructure:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MigrationsDir     string        `mapstructure:"MIGRATIONS_DIR"`
	SeedOnStart       bool          `mapstructure:"SEED_ON_START"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS",
	"RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "BODY_LIMIT", "REQUEST_TIMEOUT",
	"MIGRATIONS_DIR", "SEED_ON_START", "LOG_LEVEL",
}

// Load reads configuration from the environment and an optional .env file in
// the working directory. DATABASE_URL is required.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("RATE_LIMIT_REQUESTS", 300)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("SEED_ON_START", false)
	v.SetDefault("LOG_LEVEL", "info")

	// Unmarshal only sees keys viper knows about.
	for _, k := range keys {
		v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitOrigins(cfg.CORSOrigins)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// splitOrigins flattens comma-separated entries from a single env string.
func splitOrigins(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, o := range strings.Split(entry, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "test", "production":
	default:
		return fmt.Errorf("ENV must be \"development\", \"test\" or \"production\", got %q", c.Env)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1, got %d", c.DBMaxConns)
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS (%d), got %d", c.DBMaxConns, c.DBMinConns)
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when RATE_LIMIT_REQUESTS is set")
	}
	if c.IsProduction() {
		for _, o := range c.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain \"*\" in production")
			}
		}
	}
	return nil
}
