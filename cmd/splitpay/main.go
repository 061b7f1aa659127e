package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	splitpay "github.com/goliatone/go-splitpay"
	"github.com/goliatone/go-splitpay/adapters/gocommand"
	"github.com/goliatone/go-splitpay/adapters/gojob"
	"github.com/goliatone/go-splitpay/adapters/gologger"
	"github.com/goliatone/go-splitpay/adapters/prommetrics"
	"github.com/goliatone/go-splitpay/core"
	"github.com/goliatone/go-splitpay/httpapi"
	"github.com/goliatone/go-splitpay/openpayments"
	"github.com/goliatone/go-splitpay/rates"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "splitpay: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	base, err := gologger.NewProductionZap(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = base.Sync() }()
	provider := gologger.NewZapProvider(base)
	logger := provider.GetLogger("splitpay.cmd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	network, err := openpayments.NewClient(openpayments.Config{
		ClientWalletAddress: cfg.PlatformWalletAddress,
		KeyID:               cfg.ClientKeyID,
		PrivateKeyPEM:       cfg.PrivateKeyPEM,
		RequestTimeout:      cfg.UpstreamTimeout,
	})
	if err != nil {
		return fmt.Errorf("open payments client: %w", err)
	}

	market, err := newMarketSource(cfg, base)
	if err != nil {
		return err
	}

	pending, closeStore, err := openPendingStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	recorder := prommetrics.NewRecorder(prometheus.DefaultRegisterer)
	svc, err := splitpay.NewService(cfg.serviceConfig(),
		splitpay.WithLoggerProvider(provider),
		splitpay.WithMetricsRecorder(recorder),
		splitpay.WithNetworkClient(network),
		splitpay.WithMarketRateSource(market),
		splitpay.WithPendingStateStore(pending),
		splitpay.WithQueuedSweep(gocommand.DispatchSweep),
	)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	facade, err := splitpay.NewFacade(svc)
	if err != nil {
		return err
	}

	registry := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := registry.AddQueueResolver("queue", jobqueuecommand.NewRegistry()); err != nil {
		return fmt.Errorf("queue resolver: %w", err)
	}
	subs, err := gocommand.RegisterSplitpay(registry, svc, svc)
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	defer subs.Unsubscribe()
	if err := registry.Initialize(); err != nil {
		return fmt.Errorf("initialize command registry: %w", err)
	}

	jobLogger, queueLogger := gologger.ResolveForJob("splitpay.jobs", provider, nil)
	jobs := gojob.NewMemoryQueue(gojob.WithQueueLogger(queueLogger))
	consumer, err := gojob.NewConsumer(
		gojob.NewDequeuerAdapter(jobs, gojob.RetryPolicy{
			MaxAttempts:     3,
			MaxDelay:        cfg.PendingSweepInterval,
			DeadLetterOnMax: true,
		}),
		svc.HandleJobDelivery,
		gojob.WithHook(core.NewJobMetricsHook(recorder)),
	)
	if err != nil {
		return fmt.Errorf("job consumer: %w", err)
	}

	api := httpapi.NewAPI(facade,
		httpapi.WithLogger(provider.GetLogger("splitpay.http")),
		httpapi.WithBaseURL(cfg.BaseURL),
		httpapi.WithGatherer(prometheus.DefaultGatherer),
	)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.BaseURL == "" {
		logger.Warn("BASE_URL is not set; checkouts will be rejected")
	}
	logger.Info("splitpay listening",
		"addr", server.Addr,
		"pending_store", cfg.PendingStore,
		"market_cache_ttl", cfg.MarketCacheTTL.String(),
	)

	serveErr := make(chan error, 1)
	wg := conc.NewWaitGroup()
	wg.Go(func() {
		if err := svc.RunPendingSweeper(ctx, gojob.NewEnqueuerAdapter(jobs)); err != nil && !errors.Is(err, context.Canceled) {
			jobLogger.Error("pending sweeper stopped", "error", err.Error())
		}
	})
	wg.Go(func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			jobLogger.Error("job consumer stopped", "error", err.Error())
		}
	})
	wg.Go(func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	})

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err.Error())
	}
	wg.Wait()

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	default:
		return nil
	}
}

func newMarketSource(cfg appConfig, base *zap.Logger) (core.MarketRateSource, error) {
	fallback := rates.NewFallback(nil,
		rates.WithTimeout(cfg.MarketTimeout),
		rates.WithLogger(base.Named("rates")),
	)
	if cfg.MarketCacheTTL <= 0 {
		return fallback, nil
	}
	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = cfg.MarketCacheTTL
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("market rate cache: %w", err)
	}
	return rates.NewCachedSource(fallback, cacheService)
}
