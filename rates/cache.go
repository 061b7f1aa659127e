package rates

import (
	"context"
	"fmt"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-splitpay/core"
)

const marketRateCacheKeyPrefix = "splitpay::market_rate::v1"

// CachedSource serves market rates read-through a cache. Failed lookups are
// not cached.
type CachedSource struct {
	base  core.MarketRateSource
	cache repositorycache.CacheService
}

func NewCachedSource(base core.MarketRateSource, cacheService repositorycache.CacheService) (*CachedSource, error) {
	if base == nil {
		return nil, fmt.Errorf("rates: base market rate source is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("rates: market rate cache service is required")
	}
	return &CachedSource{base: base, cache: cacheService}, nil
}

// MarketRateCacheKey returns splitpay::market_rate::v1::<FROM>::<TO>.
func MarketRateCacheKey(from string, to string) string {
	return strings.Join([]string{
		marketRateCacheKeyPrefix,
		strings.ToUpper(strings.TrimSpace(from)),
		strings.ToUpper(strings.TrimSpace(to)),
	}, "::")
}

func (c *CachedSource) MarketRate(ctx context.Context, from string, to string) (core.MarketRate, error) {
	if c == nil || c.base == nil || c.cache == nil {
		return core.MarketRate{}, fmt.Errorf("rates: cached market rate source is not configured")
	}
	return repositorycache.GetOrFetch(ctx, c.cache, MarketRateCacheKey(from, to), func(ctx context.Context) (core.MarketRate, error) {
		return c.base.MarketRate(ctx, from, to)
	})
}

var _ core.MarketRateSource = (*CachedSource)(nil)
