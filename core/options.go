package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type NonceGenerator func() (string, error)

type serviceBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	networkClient   NetworkClient
	pendingStore    PendingStateStore
	marketSource    MarketRateSource
	nonceGenerator  NonceGenerator
	queuedSweep     SweepFunc
	now             func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithNetworkClient(client NetworkClient) Option {
	return func(b *serviceBuilder) {
		b.networkClient = client
	}
}

func WithPendingStateStore(store PendingStateStore) Option {
	return func(b *serviceBuilder) {
		b.pendingStore = store
	}
}

func WithMarketRateSource(source MarketRateSource) Option {
	return func(b *serviceBuilder) {
		b.marketSource = source
	}
}

func WithNonceGenerator(generator NonceGenerator) Option {
	return func(b *serviceBuilder) {
		b.nonceGenerator = generator
	}
}

// WithQueuedSweep replaces the sweep run for queued sweep jobs, for example
// to dispatch it through a command bus.
func WithQueuedSweep(sweep SweepFunc) Option {
	return func(b *serviceBuilder) {
		b.queuedSweep = sweep
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.now = now
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve(defaultServiceName, nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		nonceGenerator:  GenerateNonce,
		now:             time.Now,
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return serviceErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// StaticConfigLoader serves a fixed raw map, mostly for tests and embedding.
func StaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	setString := func(key string, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			layer[key] = value
		}
	}
	setString("service_name", cfg.ServiceName)
	setString("platform_wallet_address", cfg.PlatformWalletAddress)
	setString("client_key_id", cfg.ClientKeyID)
	setString("private_key_pem", cfg.PrivateKeyPEM)
	setString("base_url", cfg.BaseURL)
	setString("callback_path", cfg.CallbackPath)

	upstream := map[string]any{}
	if includeZero || cfg.Upstream.Timeout > 0 {
		upstream["timeout"] = cfg.Upstream.Timeout
	}
	if includeZero || cfg.Upstream.RetryAttempts > 0 {
		upstream["retry_attempts"] = cfg.Upstream.RetryAttempts
	}
	if includeZero || cfg.Upstream.RetryDelay > 0 {
		upstream["retry_delay"] = cfg.Upstream.RetryDelay
	}
	if len(upstream) > 0 {
		layer["upstream"] = upstream
	}

	pending := map[string]any{}
	if includeZero || cfg.Pending.TTL > 0 {
		pending["ttl"] = cfg.Pending.TTL
	}
	if includeZero || cfg.Pending.SweepInterval > 0 {
		pending["sweep_interval"] = cfg.Pending.SweepInterval
	}
	if len(pending) > 0 {
		layer["pending"] = pending
	}

	if includeZero || cfg.Market.Timeout > 0 {
		layer["market"] = map[string]any{"timeout": cfg.Market.Timeout}
	}

	fx := map[string]any{}
	if includeZero || cfg.FX.NotionalMajor > 0 {
		fx["notional_major"] = cfg.FX.NotionalMajor
	}
	if includeZero || len(cfg.FX.Wallets) > 0 {
		fx["wallets"] = stringMapToAny(cfg.FX.Wallets)
	}
	if includeZero || len(cfg.FX.Aliases) > 0 {
		fx["aliases"] = stringMapToAny(cfg.FX.Aliases)
	}
	if len(fx) > 0 {
		layer["fx"] = fx
	}
	return layer
}

func stringMapToAny(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
