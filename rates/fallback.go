package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-splitpay/core"
	"go.uber.org/zap"
)

const defaultTimeout = 4 * time.Second

var ErrMarketRateUnavailable = errors.New("rates: market-rate-unavailable")

// Fallback asks each market in order and returns the first usable rate.
type Fallback struct {
	markets []Market
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

type Option func(*Fallback)

func WithHTTPClient(client *http.Client) Option {
	return func(f *Fallback) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout bounds each provider request.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fallback) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *Fallback) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFallback(markets []Market, opts ...Option) *Fallback {
	if len(markets) == 0 {
		markets = Markets(DefaultEndpoints())
	}
	f := &Fallback{
		markets: append([]Market(nil), markets...),
		client:  http.DefaultClient,
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

func (f *Fallback) MarketRate(ctx context.Context, from string, to string) (core.MarketRate, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return core.MarketRate{}, fmt.Errorf("rates: from and to currencies are required")
	}
	var lastErr error
	for _, market := range f.markets {
		if err := ctx.Err(); err != nil {
			return core.MarketRate{}, fmt.Errorf("%w: %v", ErrMarketRateUnavailable, err)
		}
		rate, err := f.fetch(ctx, market, from, to)
		if err != nil {
			f.logger.Warn("market rate provider failed",
				zap.String("source", market.Name),
				zap.String("from", from),
				zap.String("to", to),
				zap.Error(err),
			)
			errorsCounter.WithLabelValues(market.Name).Inc()
			lastErr = err
			continue
		}
		return core.MarketRate{Rate: rate, Provider: market.Name}, nil
	}
	if lastErr == nil {
		return core.MarketRate{}, ErrMarketRateUnavailable
	}
	return core.MarketRate{}, fmt.Errorf("%w: %v", ErrMarketRateUnavailable, lastErr)
}

func (f *Fallback) fetch(ctx context.Context, market Market, from string, to string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	respBody, err := sendRequest(ctx, f.client, market.URL(from, to))
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	rate, err := market.Converter(respBody, to)
	if err != nil {
		return 0, fmt.Errorf("failed to convert response: %w", err)
	}
	return rate, nil
}

func sendRequest(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errRespBody string
		if respBody, err := io.ReadAll(io.LimitReader(resp.Body, 512)); err == nil {
			errRespBody = string(respBody)
		}
		resp.Body.Close()
		return nil, fmt.Errorf("bad status code: %v %v %v", resp.StatusCode, url, errRespBody)
	}
	return resp.Body, nil
}

var _ core.MarketRateSource = (*Fallback)(nil)
