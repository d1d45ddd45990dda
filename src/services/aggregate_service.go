package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/logger"
	"github.com/username/snapfolio/backend/src/models"
)

type aggregateServiceImpl struct {
	snapshots    SnapshotStore
	baseCurrency string
	defaultRate  decimal.Decimal
}

// NewAggregateService returns the aggregator that combines per-currency
// snapshots into cross-currency portfolio totals in the base currency.
func NewAggregateService(snapshots SnapshotStore, baseCurrency string, defaultRate decimal.Decimal) AggregateService {
	return &aggregateServiceImpl{
		snapshots:    snapshots,
		baseCurrency: baseCurrency,
		defaultRate:  defaultRate,
	}
}

func (s *aggregateServiceImpl) AggregateHistory(ctx context.Context, days int) ([]models.AggregatePoint, error) {
	cutoff := models.DateOnly(time.Now().UTC()).AddDate(0, 0, -days)
	snaps, err := s.snapshots.ListSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		totalValue  decimal.Decimal
		totalChange decimal.Decimal
		pctSum      decimal.Decimal
		count       int64
	}
	buckets := make(map[string]*bucket)

	for _, snap := range snaps {
		key := models.FormatDate(snap.SnapshotDate)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}

		// Summing raw totals across currencies would silently add USD to
		// KRW; every non-base snapshot converts at its own stored rate.
		total := snap.TotalValue
		change := snap.ValueChange
		if snap.Currency != s.baseCurrency {
			rate := s.defaultRate
			if snap.ExchangeRate != nil {
				rate = *snap.ExchangeRate
			} else {
				logger.FromContext(ctx).Warn("Snapshot has no stored exchange rate, using default for aggregation",
					"accountID", snap.AccountID, "date", key, "currency", snap.Currency)
			}
			total = total.Mul(rate)
			change = change.Mul(rate)
		}
		b.totalValue = b.totalValue.Add(total)
		b.totalChange = b.totalChange.Add(change)
		b.pctSum = b.pctSum.Add(snap.ChangePct)
		b.count++
	}

	points := make([]models.AggregatePoint, 0, len(buckets))
	for key, b := range buckets {
		date, err := models.ParseDate(key)
		if err != nil {
			return nil, err
		}
		avgPct := decimal.Zero
		if b.count > 0 {
			avgPct = b.pctSum.Div(decimal.NewFromInt(b.count))
		}
		points = append(points, models.AggregatePoint{
			Date:         date,
			TotalValue:   b.totalValue,
			TotalChange:  b.totalChange,
			AvgChangePct: avgPct,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// CombinedValue converts a base-currency total and an alt-currency total into
// grand totals expressed in each currency. A non-positive rate guards the
// division and reports the base side unconverted.
func CombinedValue(baseTotal, altTotal, rate decimal.Decimal) (totalInBase, totalInAlt decimal.Decimal) {
	totalInBase = baseTotal.Add(altTotal.Mul(rate))
	totalInAlt = altTotal
	if rate.IsPositive() {
		totalInAlt = altTotal.Add(baseTotal.Div(rate))
	}
	return totalInBase, totalInAlt
}
