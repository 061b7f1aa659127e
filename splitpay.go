package splitpay

import "github.com/goliatone/go-splitpay/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type NetworkClient = core.NetworkClient
type PendingStateStore = core.PendingStateStore
type MarketRateSource = core.MarketRateSource
type MetricsRecorder = core.MetricsRecorder

type CheckoutRequest = core.CheckoutRequest
type CheckoutResult = core.CheckoutResult
type GroupCheckoutRequest = core.GroupCheckoutRequest
type GroupCheckoutResult = core.GroupCheckoutResult
type CallbackRequest = core.CallbackRequest
type CallbackResult = core.CallbackResult
type FXCompareRequest = core.FXCompareRequest
type FXComparison = core.FXComparison
type SplitRatio = core.SplitRatio

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithNetworkClient     = core.WithNetworkClient
	WithPendingStateStore = core.WithPendingStateStore
	WithMarketRateSource  = core.WithMarketRateSource
	WithNonceGenerator    = core.WithNonceGenerator
	WithClock             = core.WithClock
	WithQueuedSweep       = core.WithQueuedSweep
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
