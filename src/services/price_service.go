package services

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/models"
)

const (
	// Cached price entries go stale quickly relative to the external
	// fetcher's cadence; keep the in-process layer short-lived.
	priceCacheExpiration      = 15 * time.Minute
	priceCacheCleanupInterval = 30 * time.Minute
)

// cachingPriceReader layers an in-process cache over the stock_prices table
// so a recalculation sweep does not re-query the same tickers for every date.
type cachingPriceReader struct {
	store      PriceReader
	priceCache *cache.Cache
}

// NewCachingPriceReader wraps a PriceReader with a read-through cache.
func NewCachingPriceReader(store PriceReader) PriceReader {
	return &cachingPriceReader{
		store:      store,
		priceCache: cache.New(priceCacheExpiration, priceCacheCleanupInterval),
	}
}

// cachedPrice distinguishes "known absent" from "not looked up yet", so
// tickers without a usable price do not hammer the table either.
type cachedPrice struct {
	price decimal.Decimal
	ok    bool
}

func (r *cachingPriceReader) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, bool, error) {
	if entry, found := r.priceCache.Get(ticker); found {
		cp := entry.(cachedPrice)
		return cp.price, cp.ok, nil
	}
	price, ok, err := r.store.GetPrice(ctx, ticker)
	if err != nil {
		return decimal.Zero, false, err
	}
	r.priceCache.Set(ticker, cachedPrice{price: price, ok: ok}, cache.DefaultExpiration)
	return price, ok, nil
}

func (r *cachingPriceReader) GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal, len(tickers))
	var missing []string
	for _, ticker := range tickers {
		if entry, found := r.priceCache.Get(ticker); found {
			cp := entry.(cachedPrice)
			if cp.ok {
				result[ticker] = cp.price
			}
			continue
		}
		missing = append(missing, ticker)
	}
	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := r.store.GetPrices(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, ticker := range missing {
		price, ok := fetched[ticker]
		r.priceCache.Set(ticker, cachedPrice{price: price, ok: ok}, cache.DefaultExpiration)
		if ok {
			result[ticker] = price
		}
	}
	return result, nil
}

// CacheStatus always reads through; monitoring wants live numbers.
func (r *cachingPriceReader) CacheStatus(ctx context.Context) (*models.PriceCacheStatus, error) {
	return r.store.CacheStatus(ctx)
}
