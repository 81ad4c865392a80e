// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"OETR_DB_PATH" envDefault:"./data/translation.db"`
	ServerHost string `env:"OETR_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"OETR_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"OETR_ENV" envDefault:"development"`
	LogLevel   string `env:"OETR_LOG_LEVEL" envDefault:"info"`

	// Dossier allocation
	RequesterCode string `env:"OETR_REQUESTER_CODE" envDefault:"DIGIT"`
	SequenceToken string `env:"OETR_SEQUENCE_TOKEN,required"` // provider-agreed token for fresh dossier numbers

	// Provider callbacks
	CallbackAPIKey string `env:"OETR_CALLBACK_API_KEY,required"` // shared key provider callbacks authenticate with
	ProviderDryRun bool   `env:"OETR_PROVIDER_DRY_RUN" envDefault:"true"`

	// Deadline watchdog
	DeadlineCron string `env:"OETR_DEADLINE_CRON" envDefault:"0 * * * *"` // hourly

	// Cache configuration
	RedisURL     string `env:"OETR_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"OETR_CACHE_PREFIX" envDefault:"oetr:"`   // Redis key prefix
	CacheTTL     int    `env:"OETR_CACHE_TTL" envDefault:"3600"`       // Default cache TTL in seconds
	CacheMaxSize int    `env:"OETR_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// MinAPIKeyLength is the minimum required length for the callback API key.
const MinAPIKeyLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.CallbackAPIKey) < MinAPIKeyLength {
		return nil, fmt.Errorf("OETR_CALLBACK_API_KEY must be at least %d bytes long, got %d bytes; "+
			"generate a secure key with: openssl rand -base64 32",
			MinAPIKeyLength, len(cfg.CallbackAPIKey))
	}

	cfg.RequesterCode = strings.ToUpper(strings.TrimSpace(cfg.RequesterCode))
	if cfg.RequesterCode == "" {
		return nil, fmt.Errorf("OETR_REQUESTER_CODE must not be empty")
	}
	if strings.TrimSpace(cfg.SequenceToken) == "" {
		return nil, fmt.Errorf("OETR_SEQUENCE_TOKEN must not be empty")
	}

	return cfg, nil
}
