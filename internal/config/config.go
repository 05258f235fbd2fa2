// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	BaseURL        string        `mapstructure:"BASE_URL"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	VocabTTL       time.Duration `mapstructure:"VOCAB_TTL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("BASE_URL", "http://localhost:8000")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("VOCAB_TTL", "5m")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("BASE_URL")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REQUEST_TIMEOUT")
	v.BindEnv("VOCAB_TTL")

	// Try reading .env, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate rejects settings that would misbehave at runtime rather than at
// startup.
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.VocabTTL <= 0 {
		return fmt.Errorf("VOCAB_TTL must be positive, got %s", c.VocabTTL)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}
