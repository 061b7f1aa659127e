package core

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

type failingRawLoader struct{}

func (failingRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	return nil, errors.New("config source offline")
}

func TestNewService_DefaultDependencies(t *testing.T) {
	svc, err := NewService(Config{}, WithNetworkClient(defaultStubNetwork()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	deps := svc.Dependencies()
	if deps.Logger == nil {
		t.Fatalf("expected default logger")
	}
	if deps.LoggerProvider == nil {
		t.Fatalf("expected default logger provider")
	}
	if deps.ErrorFactory == nil || deps.ErrorMapper == nil {
		t.Fatalf("expected default error factory and mapper")
	}
	if deps.ConfigProvider == nil || deps.OptionsResolver == nil {
		t.Fatalf("expected default config provider and options resolver")
	}
	if _, ok := deps.PendingStore.(*MemoryPendingStateStore); !ok {
		t.Fatalf("expected in-memory pending store by default, got %T", deps.PendingStore)
	}

	cfg := svc.Config()
	if cfg.ServiceName != "splitpay" {
		t.Fatalf("expected default service_name=splitpay, got %q", cfg.ServiceName)
	}
	if cfg.Pending.TTL != 30*time.Minute || cfg.Upstream.Timeout != 15*time.Second {
		t.Fatalf("expected default durations, got ttl=%s timeout=%s", cfg.Pending.TTL, cfg.Upstream.Timeout)
	}
	if cfg.FX.NotionalMajor != 100 || len(cfg.FX.Wallets) != 6 {
		t.Fatalf("expected default fx registry, got %+v", cfg.FX)
	}
}

func TestNewService_RequiresNetworkClient(t *testing.T) {
	_, err := NewService(Config{})
	if err == nil {
		t.Fatalf("expected missing network client to fail")
	}
	if !IsTextCode(err, ServiceErrorBadInput) {
		t.Fatalf("expected bad input code, got %v", err)
	}
}

func TestNewService_WithXOverrides(t *testing.T) {
	customLogger := newCaptureLogger()
	customProvider := stubLoggerProvider{logger: customLogger}
	customFactory := func(message string, category ...goerrors.Category) *goerrors.Error {
		return goerrors.New("custom:"+message, category...)
	}
	sentinel := errors.New("sentinel")
	customMapper := func(error) *goerrors.Error {
		return goerrors.Wrap(sentinel, goerrors.CategoryOperation, "mapped")
	}
	configProvider := &fixedConfigProvider{cfg: Config{ServiceName: "from-provider"}}
	optionsResolver := &fixedOptionsResolver{cfg: Config{ServiceName: "resolved"}}
	store := NewMemoryPendingStateStore(time.Minute)
	market := &stubMarketSource{}

	svc, err := NewService(Config{ServiceName: "runtime"},
		WithLogger(customLogger),
		WithLoggerProvider(customProvider),
		WithErrorFactory(customFactory),
		WithErrorMapper(customMapper),
		WithConfigProvider(configProvider),
		WithOptionsResolver(optionsResolver),
		WithNetworkClient(defaultStubNetwork()),
		WithPendingStateStore(store),
		WithMarketRateSource(market),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	deps := svc.Dependencies()
	if deps.Logger != customLogger {
		t.Fatalf("expected custom logger override")
	}
	if resolved := deps.LoggerProvider.GetLogger("splitpay.override"); resolved != customLogger {
		t.Fatalf("expected logger provider to resolve custom logger")
	}
	if deps.ConfigProvider != configProvider || deps.OptionsResolver != optionsResolver {
		t.Fatalf("expected custom config provider and options resolver")
	}
	if deps.PendingStore != store || deps.MarketSource != market {
		t.Fatalf("expected custom pending store and market source")
	}
	if got := svc.Config().ServiceName; got != "resolved" {
		t.Fatalf("expected options resolver output config, got %q", got)
	}
	if mapped := svc.mapError(errors.New("boom")); !errors.Is(mapped, sentinel) {
		t.Fatalf("expected custom error mapper to run, got %v", mapped)
	}
}

func TestNewService_ConfigLayeringPrecedence(t *testing.T) {
	provider := NewCfgxConfigProvider(StaticConfigLoader(map[string]any{
		"service_name": "from-config",
		"base_url":     "https://config.example",
		"pending": map[string]any{
			"ttl": 5 * time.Minute,
		},
		"fx": map[string]any{
			"notional_major": 250,
		},
	}))

	svc, err := NewService(Config{ServiceName: "from-runtime"},
		WithConfigProvider(provider),
		WithNetworkClient(defaultStubNetwork()),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	cfg := svc.Config()
	if cfg.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime value to override config/default, got %q", cfg.ServiceName)
	}
	if cfg.BaseURL != "https://config.example" {
		t.Fatalf("expected config layer base url, got %q", cfg.BaseURL)
	}
	if cfg.Pending.TTL != 5*time.Minute {
		t.Fatalf("expected config layer ttl, got %s", cfg.Pending.TTL)
	}
	if cfg.Pending.SweepInterval != time.Minute {
		t.Fatalf("expected default sweep interval to survive, got %s", cfg.Pending.SweepInterval)
	}
	if cfg.FX.NotionalMajor != 250 {
		t.Fatalf("expected config layer notional, got %d", cfg.FX.NotionalMajor)
	}
}

func TestNewService_ConfigLoadFailure(t *testing.T) {
	_, err := NewService(Config{},
		WithConfigProvider(NewCfgxConfigProvider(failingRawLoader{})),
		WithNetworkClient(defaultStubNetwork()),
	)
	if err == nil {
		t.Fatalf("expected config load failure")
	}
}

func TestConfigCallbackURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = " https://shop.example/ "
	if got := cfg.callbackURL("abc"); got != "https://shop.example/api/op/callback?nonce=abc" {
		t.Fatalf("unexpected callback url %q", got)
	}
}
