package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/models"
)

type reportingServiceImpl struct {
	accounts AccountDirectory
	ledger   LedgerStore
}

// NewReportingService returns the derived realized-P&L reporting over the
// ledger: closed round trips and win/loss statistics.
func NewReportingService(accounts AccountDirectory, ledger LedgerStore) ReportingService {
	return &reportingServiceImpl{accounts: accounts, ledger: ledger}
}

// ClosedPositions walks each ticker's trades chronologically and emits one
// record per zero-crossing close. A buy after a close starts a new position,
// so re-entering the same ticker yields multiple records.
func (s *reportingServiceImpl) ClosedPositions(ctx context.Context, accountID string) ([]models.ClosedPosition, error) {
	if _, err := s.accounts.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	txns, err := s.ledger.StockTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	byTicker := make(map[string][]models.StockTransaction)
	for _, t := range txns {
		byTicker[t.Ticker] = append(byTicker[t.Ticker], t)
	}
	tickers := make([]string, 0, len(byTicker))
	for ticker := range byTicker {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	var closed []models.ClosedPosition
	for _, ticker := range tickers {
		group := byTicker[ticker]
		// Store order is ascending by date already; keep it explicit since
		// the matching below depends on it.
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].TransactionDate.Before(group[j].TransactionDate)
		})

		var (
			positionOpen bool
			buys         []models.StockTransaction
			sells        []models.StockTransaction
			runningQty   int64
		)
		for _, t := range group {
			switch t.TransactionType {
			case models.TransactionTypeBuy:
				if !positionOpen {
					positionOpen = true
				}
				buys = append(buys, t)
				runningQty += t.Quantity
			case models.TransactionTypeSell:
				sells = append(sells, t)
				runningQty -= t.Quantity
				if runningQty == 0 && positionOpen {
					closed = append(closed, buildClosedPosition(accountID, buys, sells, t.TransactionDate))
					positionOpen = false
					buys, sells = nil, nil
				}
			}
		}
	}
	return closed, nil
}

func buildClosedPosition(accountID string, buys, sells []models.StockTransaction, lastDate time.Time) models.ClosedPosition {
	first := buys[0]

	buyCost := decimal.Zero
	var totalQty int64
	for _, t := range buys {
		buyCost = buyCost.Add(t.GrossAmount().Add(t.Fee))
		totalQty += t.Quantity
	}
	sellRevenue := decimal.Zero
	for _, t := range sells {
		sellRevenue = sellRevenue.Add(t.GrossAmount().Sub(t.Fee))
	}

	realizedPL := sellRevenue.Sub(buyCost)
	returnPct := decimal.Zero
	if buyCost.IsPositive() {
		returnPct = realizedPL.Div(buyCost).Mul(decimal.NewFromInt(100))
	}
	result := "Win"
	if returnPct.IsNegative() {
		result = "Loss"
	}

	return models.ClosedPosition{
		AccountID:         accountID,
		Ticker:            first.Ticker,
		StockName:         first.StockName,
		Country:           first.Country,
		Currency:          first.Currency,
		TotalSharesTraded: totalQty,
		RealizedPL:        realizedPL,
		RealizedReturnPct: returnPct,
		Result:            result,
		FirstTradeDate:    first.TransactionDate,
		LastTradeDate:     lastDate,
		HoldingPeriodDays: int(lastDate.Sub(first.TransactionDate).Hours() / 24),
	}
}

func (s *reportingServiceImpl) WinRate(ctx context.Context, accountID string) (*models.WinRateStats, error) {
	closed, err := s.ClosedPositions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	stats := &models.WinRateStats{TotalTrades: len(closed)}
	if len(closed) == 0 {
		return stats, nil
	}

	winPctSum, lossPctSum := decimal.Zero, decimal.Zero
	for _, pos := range closed {
		stats.TotalPL = stats.TotalPL.Add(pos.RealizedPL)
		if pos.Result == "Win" {
			stats.Wins++
			winPctSum = winPctSum.Add(pos.RealizedReturnPct)
		} else {
			stats.Losses++
			lossPctSum = lossPctSum.Add(pos.RealizedReturnPct)
		}
	}

	total := decimal.NewFromInt(int64(stats.TotalTrades))
	stats.WinRate = decimal.NewFromInt(int64(stats.Wins)).Div(total).Mul(decimal.NewFromInt(100))
	if stats.Wins > 0 {
		stats.AvgWin = winPctSum.Div(decimal.NewFromInt(int64(stats.Wins)))
	}
	if stats.Losses > 0 {
		stats.AvgLoss = lossPctSum.Div(decimal.NewFromInt(int64(stats.Losses)))
	}
	stats.AvgPL = stats.TotalPL.Div(total)
	return stats, nil
}
