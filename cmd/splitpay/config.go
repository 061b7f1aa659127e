package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/goliatone/go-splitpay/core"
)

const (
	pendingStoreMemory   = "memory"
	pendingStoreSQLite   = "sqlite"
	pendingStorePostgres = "postgres"
)

type appConfig struct {
	PlatformWalletAddress string `env:"OP_PLATFORM_WALLET_ADDRESS"`
	ClientKeyID           string `env:"OP_CLIENT_KEY_ID"`
	PrivateKeyPEM         string `env:"OP_PRIVATE_KEY_PEM"`
	BaseURL               string `env:"BASE_URL"`

	Port     int    `env:"PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	PendingStore         string        `env:"PENDING_STORE" envDefault:"memory"`
	DatabaseDSN          string        `env:"DATABASE_DSN"`
	PendingTTL           time.Duration `env:"PENDING_TTL" envDefault:"30m"`
	PendingSweepInterval time.Duration `env:"PENDING_SWEEP_INTERVAL" envDefault:"1m"`

	UpstreamTimeout       time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"15s"`
	UpstreamRetryAttempts int           `env:"UPSTREAM_RETRY_ATTEMPTS" envDefault:"1"`
	UpstreamRetryDelay    time.Duration `env:"UPSTREAM_RETRY_DELAY" envDefault:"250ms"`

	MarketTimeout  time.Duration `env:"MARKET_TIMEOUT" envDefault:"4s"`
	MarketCacheTTL time.Duration `env:"MARKET_CACHE_TTL" envDefault:"0s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func loadConfig() (appConfig, error) {
	var cfg appConfig
	if err := env.Parse(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.PendingStore = strings.ToLower(strings.TrimSpace(cfg.PendingStore))
	if err := cfg.validate(); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

func (c appConfig) validate() error {
	switch c.PendingStore {
	case pendingStoreMemory:
	case pendingStoreSQLite, pendingStorePostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("DATABASE_DSN is required when PENDING_STORE=%s", c.PendingStore)
		}
	default:
		return fmt.Errorf("PENDING_STORE must be one of memory, sqlite, postgres; got %q", c.PendingStore)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port; got %d", c.Port)
	}
	return nil
}

// serviceConfig is the runtime layer handed to the service; it wins over
// defaults and loaded configuration.
func (c appConfig) serviceConfig() core.Config {
	return core.Config{
		PlatformWalletAddress: strings.TrimSpace(c.PlatformWalletAddress),
		ClientKeyID:           strings.TrimSpace(c.ClientKeyID),
		PrivateKeyPEM:         c.PrivateKeyPEM,
		BaseURL:               strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"),
		Upstream: core.UpstreamConfig{
			Timeout:       c.UpstreamTimeout,
			RetryAttempts: c.UpstreamRetryAttempts,
			RetryDelay:    c.UpstreamRetryDelay,
		},
		Pending: core.PendingConfig{
			TTL:           c.PendingTTL,
			SweepInterval: c.PendingSweepInterval,
		},
		Market: core.MarketConfig{
			Timeout: c.MarketTimeout,
		},
	}
}
