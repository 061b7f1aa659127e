package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultUpstreamTimeout     = 15 * time.Second
	defaultPendingTTL          = 30 * time.Minute
	defaultPendingSweepEvery   = time.Minute
	defaultMarketTimeout       = 4 * time.Second
	defaultFXNotionalMajor     = 100
	defaultCallbackPath        = "/api/op/callback"
	defaultUpstreamRetryCount  = 1
	defaultUpstreamRetryPause  = 250 * time.Millisecond
	defaultServiceName         = "splitpay"
	defaultReferenceWalletHost = "https://ilp.interledger-test.dev/"
)

type UpstreamConfig struct {
	Timeout       time.Duration `koanf:"timeout" mapstructure:"timeout"`
	RetryAttempts int           `koanf:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay" mapstructure:"retry_delay"`
}

type PendingConfig struct {
	TTL           time.Duration `koanf:"ttl" mapstructure:"ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval" mapstructure:"sweep_interval"`
}

type MarketConfig struct {
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type FXConfig struct {
	NotionalMajor int64             `koanf:"notional_major" mapstructure:"notional_major"`
	Wallets       map[string]string `koanf:"wallets" mapstructure:"wallets"`
	Aliases       map[string]string `koanf:"aliases" mapstructure:"aliases"`
}

type Config struct {
	ServiceName           string         `koanf:"service_name" mapstructure:"service_name"`
	PlatformWalletAddress string         `koanf:"platform_wallet_address" mapstructure:"platform_wallet_address"`
	ClientKeyID           string         `koanf:"client_key_id" mapstructure:"client_key_id"`
	PrivateKeyPEM         string         `koanf:"private_key_pem" mapstructure:"private_key_pem"`
	BaseURL               string         `koanf:"base_url" mapstructure:"base_url"`
	CallbackPath          string         `koanf:"callback_path" mapstructure:"callback_path"`
	Upstream              UpstreamConfig `koanf:"upstream" mapstructure:"upstream"`
	Pending               PendingConfig  `koanf:"pending" mapstructure:"pending"`
	Market                MarketConfig   `koanf:"market" mapstructure:"market"`
	FX                    FXConfig       `koanf:"fx" mapstructure:"fx"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:  defaultServiceName,
		CallbackPath: defaultCallbackPath,
		Upstream: UpstreamConfig{
			Timeout:       defaultUpstreamTimeout,
			RetryAttempts: defaultUpstreamRetryCount,
			RetryDelay:    defaultUpstreamRetryPause,
		},
		Pending: PendingConfig{
			TTL:           defaultPendingTTL,
			SweepInterval: defaultPendingSweepEvery,
		},
		Market: MarketConfig{
			Timeout: defaultMarketTimeout,
		},
		FX: FXConfig{
			NotionalMajor: defaultFXNotionalMajor,
			Wallets:       DefaultReferenceWallets(),
			Aliases:       DefaultCurrencyAliases(),
		},
	}
}

// DefaultReferenceWallets lists the wallets quoted by the FX comparator,
// keyed by asset code.
func DefaultReferenceWallets() map[string]string {
	return map[string]string{
		"USD": defaultReferenceWalletHost + "usd_25",
		"EUR": defaultReferenceWalletHost + "eur_25",
		"MXN": defaultReferenceWalletHost + "mx_25",
		"EGG": defaultReferenceWalletHost + "eg25",
		"PEB": defaultReferenceWalletHost + "peb_25",
		"PKR": defaultReferenceWalletHost + "pkr_25",
	}
}

func DefaultCurrencyAliases() map[string]string {
	return map[string]string{
		"USDT": "USD",
		"USD":  "USD",
		"EUR":  "EUR",
		"MXN":  "MXN",
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Upstream.Timeout < 0 {
		return fmt.Errorf("core: upstream.timeout must be positive")
	}
	if c.Upstream.RetryAttempts < 0 {
		return fmt.Errorf("core: upstream.retry_attempts must be zero or more")
	}
	if c.Upstream.RetryDelay < 0 {
		return fmt.Errorf("core: upstream.retry_delay must be positive")
	}
	if c.Pending.TTL < 0 || c.Pending.SweepInterval < 0 {
		return fmt.Errorf("core: pending durations must be positive")
	}
	if c.Market.Timeout < 0 {
		return fmt.Errorf("core: market.timeout must be positive")
	}
	if c.FX.NotionalMajor < 0 {
		return fmt.Errorf("core: fx.notional_major must be positive")
	}
	for code, wallet := range c.FX.Wallets {
		if strings.TrimSpace(code) == "" || strings.TrimSpace(wallet) == "" {
			return fmt.Errorf("core: fx.wallets entries require a code and a wallet address")
		}
	}
	return nil
}

// missingCredentials names the identity settings needed to sign grant and
// payment calls that are not set.
func (c Config) missingCredentials() []string {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(c.ClientKeyID) == "" {
		missing = append(missing, "client_key_id")
	}
	if strings.TrimSpace(c.PrivateKeyPEM) == "" {
		missing = append(missing, "private_key_pem")
	}
	if strings.TrimSpace(c.PlatformWalletAddress) == "" {
		missing = append(missing, "platform_wallet_address")
	}
	return missing
}

func (c Config) callbackURL(nonce string) string {
	path := c.CallbackPath
	if strings.TrimSpace(path) == "" {
		path = defaultCallbackPath
	}
	return strings.TrimRight(strings.TrimSpace(c.BaseURL), "/") + path + "?nonce=" + nonce
}
