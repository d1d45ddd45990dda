package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/snapfolio/backend/src/models"
)

func newReportingFixture(stock []models.StockTransaction) ReportingService {
	accounts := &fakeAccounts{accounts: []models.Account{testAccount(acctA, 1, "10000000", "5000")}}
	return NewReportingService(accounts, &fakeLedger{stock: stock})
}

func TestClosedPositionsSingleRoundTrip(t *testing.T) {
	svc := newReportingFixture([]models.StockTransaction{
		buy(acctA, "005930.KS", "KRW", "70000", 10, "350", "2025-03-01"),
		sell(acctA, "005930.KS", "KRW", "75000", 10, "375", "2025-03-15"),
	})

	closed, err := svc.ClosedPositions(context.Background(), acctA)
	require.NoError(t, err)
	require.Len(t, closed, 1)

	pos := closed[0]
	assert.Equal(t, "005930.KS", pos.Ticker)
	assert.Equal(t, int64(10), pos.TotalSharesTraded)
	// Buy cost 700,000 + 350 fee; sell revenue 750,000 - 375 fee.
	assert.True(t, pos.RealizedPL.Equal(d("49275")), "got %s", pos.RealizedPL)
	assert.Equal(t, "Win", pos.Result)
	assert.Equal(t, 14, pos.HoldingPeriodDays)
	assert.Equal(t, day("2025-03-01"), pos.FirstTradeDate)
	assert.Equal(t, day("2025-03-15"), pos.LastTradeDate)
}

func TestClosedPositionsIgnoresOpenPosition(t *testing.T) {
	svc := newReportingFixture([]models.StockTransaction{
		buy(acctA, "005930.KS", "KRW", "70000", 10, "0", "2025-03-01"),
		sell(acctA, "005930.KS", "KRW", "75000", 4, "0", "2025-03-10"),
	})

	closed, err := svc.ClosedPositions(context.Background(), acctA)
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestClosedPositionsReentrySplitsRecords(t *testing.T) {
	svc := newReportingFixture([]models.StockTransaction{
		buy(acctA, "AAPL", "USD", "150", 5, "1", "2025-01-02"),
		sell(acctA, "AAPL", "USD", "170", 5, "1", "2025-02-01"),
		buy(acctA, "AAPL", "USD", "180", 3, "1", "2025-04-01"),
		sell(acctA, "AAPL", "USD", "160", 3, "1", "2025-05-01"),
	})

	closed, err := svc.ClosedPositions(context.Background(), acctA)
	require.NoError(t, err)
	require.Len(t, closed, 2)

	// First round trip: 5 @ 150 -> 170.
	assert.True(t, closed[0].RealizedPL.Equal(d("98")), "got %s", closed[0].RealizedPL)
	assert.Equal(t, "Win", closed[0].Result)
	// Second round trip: 3 @ 180 -> 160 is a loss, scoped to its own trades.
	assert.True(t, closed[1].RealizedPL.Equal(d("-62")), "got %s", closed[1].RealizedPL)
	assert.Equal(t, "Loss", closed[1].Result)
	assert.Equal(t, day("2025-04-01"), closed[1].FirstTradeDate)
}

func TestClosedPositionsMultipleBuysOneSell(t *testing.T) {
	svc := newReportingFixture([]models.StockTransaction{
		buy(acctA, "AAPL", "USD", "100", 4, "0", "2025-01-02"),
		buy(acctA, "AAPL", "USD", "120", 6, "0", "2025-01-10"),
		sell(acctA, "AAPL", "USD", "110", 10, "0", "2025-02-01"),
	})

	closed, err := svc.ClosedPositions(context.Background(), acctA)
	require.NoError(t, err)
	require.Len(t, closed, 1)

	// Cost 400 + 720 = 1120; revenue 1100.
	assert.True(t, closed[0].RealizedPL.Equal(d("-20")), "got %s", closed[0].RealizedPL)
	assert.Equal(t, int64(10), closed[0].TotalSharesTraded)
}

func TestClosedPositionsUnknownAccount(t *testing.T) {
	svc := newReportingFixture(nil)

	_, err := svc.ClosedPositions(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestWinRate(t *testing.T) {
	svc := newReportingFixture([]models.StockTransaction{
		buy(acctA, "AAPL", "USD", "100", 10, "0", "2025-01-02"),
		sell(acctA, "AAPL", "USD", "110", 10, "0", "2025-02-01"),
		buy(acctA, "MSFT", "USD", "200", 5, "0", "2025-01-02"),
		sell(acctA, "MSFT", "USD", "220", 5, "0", "2025-02-01"),
		buy(acctA, "NVDA", "USD", "500", 2, "0", "2025-01-02"),
		sell(acctA, "NVDA", "USD", "400", 2, "0", "2025-02-01"),
	})

	stats, err := svc.WinRate(context.Background(), acctA)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	// 2 of 3 round trips closed positive.
	assert.True(t, stats.WinRate.Round(2).Equal(d("66.67")), "got %s", stats.WinRate)
	assert.True(t, stats.AvgWin.Equal(d("10")), "got %s", stats.AvgWin)
	assert.True(t, stats.AvgLoss.Equal(d("-20")), "got %s", stats.AvgLoss)
	assert.True(t, stats.TotalPL.Equal(d("0")), "got %s", stats.TotalPL)
}

func TestWinRateEmptyLedger(t *testing.T) {
	svc := newReportingFixture(nil)

	stats, err := svc.WinRate(context.Background(), acctA)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTrades)
	assert.True(t, stats.WinRate.IsZero())
}
