package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/snapfolio/backend/src/models"
)

func storedSnapshot(store *fakeSnapshotStore, accountID string, date time.Time, currency, total, change, pct string, rate *decimal.Decimal) {
	_ = store.Save(context.Background(), &models.PortfolioSnapshot{
		ID:           accountID + "-" + models.FormatDate(date) + "-" + currency,
		AccountID:    accountID,
		SnapshotDate: date,
		Currency:     currency,
		TotalValue:   d(total),
		ValueChange:  d(change),
		ChangePct:    d(pct),
		ExchangeRate: rate,
	})
}

func TestAggregateHistoryConvertsAltCurrency(t *testing.T) {
	store := newFakeSnapshotStore()
	date := models.DateOnly(time.Now().UTC()).AddDate(0, 0, -1)

	storedSnapshot(store, acctA, date, "KRW", "10000000", "200000", "2", nil)
	storedSnapshot(store, acctA, date, "USD", "30000", "100", "4", dp("1300"))

	svc := NewAggregateService(store, "KRW", d("1300"))
	points, err := svc.AggregateHistory(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, points, 1)

	p := points[0]
	// 10,000,000 KRW + 30,000 USD converted at the snapshot's own rate,
	// never the raw numeric sum of the two totals.
	assert.True(t, p.TotalValue.Equal(d("49000000")), "got %s", p.TotalValue)
	assert.True(t, p.TotalChange.Equal(d("330000")), "got %s", p.TotalChange)
	assert.True(t, p.AvgChangePct.Equal(d("3")), "got %s", p.AvgChangePct)
}

func TestAggregateHistoryMissingRateFallsBackToDefault(t *testing.T) {
	store := newFakeSnapshotStore()
	date := models.DateOnly(time.Now().UTC())

	storedSnapshot(store, acctA, date, "USD", "100", "0", "0", nil)

	svc := NewAggregateService(store, "KRW", d("1250"))
	points, err := svc.AggregateHistory(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.True(t, points[0].TotalValue.Equal(d("125000")))
}

func TestAggregateHistoryBaseCurrencyUnconverted(t *testing.T) {
	store := newFakeSnapshotStore()
	date := models.DateOnly(time.Now().UTC())

	// A base-currency snapshot with a stored rate must not be multiplied.
	storedSnapshot(store, acctA, date, "KRW", "5000000", "0", "0", dp("1300"))

	svc := NewAggregateService(store, "KRW", d("1300"))
	points, err := svc.AggregateHistory(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.True(t, points[0].TotalValue.Equal(d("5000000")))
}

func TestAggregateHistoryAscendingDates(t *testing.T) {
	store := newFakeSnapshotStore()
	today := models.DateOnly(time.Now().UTC())

	storedSnapshot(store, acctA, today, "KRW", "300", "0", "0", nil)
	storedSnapshot(store, acctA, today.AddDate(0, 0, -2), "KRW", "100", "0", "0", nil)
	storedSnapshot(store, acctA, today.AddDate(0, 0, -1), "KRW", "200", "0", "0", nil)

	svc := NewAggregateService(store, "KRW", d("1300"))
	points, err := svc.AggregateHistory(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.True(t, points[0].Date.Before(points[1].Date))
	assert.True(t, points[1].Date.Before(points[2].Date))
	assert.True(t, points[0].TotalValue.Equal(d("100")))
	assert.True(t, points[2].TotalValue.Equal(d("300")))
}

func TestAggregateHistoryWindow(t *testing.T) {
	store := newFakeSnapshotStore()
	today := models.DateOnly(time.Now().UTC())

	storedSnapshot(store, acctA, today, "KRW", "300", "0", "0", nil)
	storedSnapshot(store, acctA, today.AddDate(0, 0, -30), "KRW", "100", "0", "0", nil)

	svc := NewAggregateService(store, "KRW", d("1300"))
	points, err := svc.AggregateHistory(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.True(t, points[0].Date.Equal(today))
}

func TestCombinedValue(t *testing.T) {
	tests := []struct {
		name      string
		base, alt string
		rate      string
		wantBase  string
		wantAlt   string
	}{
		{"both sides", "10000000", "30000", "1300", "49000000", "37692.3076923076923077"},
		{"alt only", "0", "100", "1250", "125000", "100"},
		{"zero rate guards division", "1000", "50", "0", "1000", "50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotBase, gotAlt := CombinedValue(d(tt.base), d(tt.alt), d(tt.rate))
			assert.True(t, gotBase.Equal(d(tt.wantBase)), "base: got %s", gotBase)
			assert.True(t, gotAlt.Equal(d(tt.wantAlt)), "alt: got %s", gotAlt)
		})
	}
}
