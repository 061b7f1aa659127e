package core

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	network         NetworkClient
	pendingStore    PendingStateStore
	marketSource    MarketRateSource
	nonceGenerator  NonceGenerator
	queuedSweep     SweepFunc
	now             func() time.Time

	resolver   *WalletAddressResolver
	negotiator *GrantNegotiator
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	NetworkClient   NetworkClient
	PendingStore    PendingStateStore
	MarketSource    MarketRateSource
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve(defaultServiceName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger(defaultServiceName); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.nonceGenerator == nil {
		builder.nonceGenerator = GenerateNonce
	}
	if builder.now == nil {
		builder.now = time.Now
	}
	if builder.networkClient == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: network client is required"))
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.pendingStore == nil {
		builder.pendingStore = NewMemoryPendingStateStore(finalConfig.Pending.TTL)
	}

	svc := &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		network:         builder.networkClient,
		pendingStore:    builder.pendingStore,
		marketSource:    builder.marketSource,
		nonceGenerator:  builder.nonceGenerator,
		queuedSweep:     builder.queuedSweep,
		now:             builder.now,
	}
	svc.resolver = &WalletAddressResolver{service: svc}
	svc.negotiator = &GrantNegotiator{service: svc}
	return svc, nil
}

func NewServiceWithDependencies(cfg Config, deps ServiceDependencies) (*Service, error) {
	return NewService(cfg,
		WithLogger(deps.Logger),
		WithLoggerProvider(deps.LoggerProvider),
		WithMetricsRecorder(deps.MetricsRecorder),
		WithErrorFactory(deps.ErrorFactory),
		WithErrorMapper(deps.ErrorMapper),
		WithConfigProvider(deps.ConfigProvider),
		WithOptionsResolver(deps.OptionsResolver),
		WithNetworkClient(deps.NetworkClient),
		WithPendingStateStore(deps.PendingStore),
		WithMarketRateSource(deps.MarketSource),
	)
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorFactory:    s.errorFactory,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		NetworkClient:   s.network,
		PendingStore:    s.pendingStore,
		MarketSource:    s.marketSource,
	}
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Logger() Logger {
	if s == nil {
		return glog.Nop()
	}
	return s.logger
}

func (s *Service) PendingStore() PendingStateStore {
	if s == nil {
		return nil
	}
	return s.pendingStore
}

func (s *Service) Resolver() *WalletAddressResolver {
	if s == nil {
		return nil
	}
	return s.resolver
}

func (s *Service) Negotiator() *GrantNegotiator {
	if s == nil {
		return nil
	}
	return s.negotiator
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) clock() time.Time {
	if s == nil || s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
