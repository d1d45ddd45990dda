package processors

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/logger"
	"github.com/username/snapfolio/backend/src/models"
	"github.com/username/snapfolio/backend/src/services"
)

// RateResolver resolves the USD/base exchange rate in effect for a date.
// Historical market data has gaps (market holidays, missed ingestion), so
// resolution walks a fallback chain and always yields a usable value:
//
//  1. a rate already stored on a snapshot for that exact date (stability
//     over recomputation: a rewritten cell keeps the rate it was first
//     captured with),
//  2. the market-index record for that exact date,
//  3. the most recent market-index rate at or before that date,
//  4. the configured last-resort default.
type RateResolver struct {
	snapshots   services.SnapshotStore
	indices     services.MarketIndexStore
	defaultRate decimal.Decimal
	rateCache   *cache.Cache
}

func NewRateResolver(snapshots services.SnapshotStore, indices services.MarketIndexStore, defaultRate decimal.Decimal) *RateResolver {
	return &RateResolver{
		snapshots:   snapshots,
		indices:     indices,
		defaultRate: defaultRate,
		rateCache:   cache.New(24*time.Hour, 48*time.Hour),
	}
}

// Resolve returns the exchange rate for the date. It never fails on missing
// data; only infrastructure errors (store failures) are returned.
func (r *RateResolver) Resolve(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	date = models.DateOnly(date)

	// 1. Check cache first. Snapshot-tier hits are deliberately not cached
	// (see below), so a cache hit is always index-backed or the default.
	cacheKey := fmt.Sprintf("rate-%s", models.FormatDate(date))
	if rate, found := r.rateCache.Get(cacheKey); found {
		return rate.(decimal.Decimal), nil
	}

	// 2. A previously captured snapshot rate for the exact date wins. Not
	// cached: mid-recalculation the first written cell of a date changes
	// the answer for the remaining cells of that date.
	rate, err := r.snapshots.RateForDate(ctx, date)
	if err != nil {
		return decimal.Zero, err
	}
	if rate != nil {
		return *rate, nil
	}

	// 3. Market-index record for the exact date.
	rate, err = r.indices.GetRate(ctx, date)
	if err != nil {
		return decimal.Zero, err
	}
	if rate != nil {
		r.rateCache.Set(cacheKey, *rate, cache.DefaultExpiration)
		return *rate, nil
	}

	// 4. Most recent index rate at or before the date (weekends, holidays,
	// ingestion gaps).
	rate, err = r.indices.GetLatestRateAtOrBefore(ctx, date)
	if err != nil {
		return decimal.Zero, err
	}
	if rate != nil {
		logger.FromContext(ctx).Debug("No exchange rate for exact date, using most recent earlier rate",
			"date", models.FormatDate(date), "rate", rate.String())
		r.rateCache.Set(cacheKey, *rate, cache.DefaultExpiration)
		return *rate, nil
	}

	// 5. Total absence of historical data: hardcoded last resort.
	logger.FromContext(ctx).Warn("No historical exchange rate found at or before date, using default",
		"date", models.FormatDate(date), "default", r.defaultRate.String())
	return r.defaultRate, nil
}
