package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/logger"
	"github.com/username/snapfolio/backend/src/models"
	"golang.org/x/sync/errgroup"
)

// ExchangeRateResolver yields the exchange rate in effect for a date. It may
// degrade to a default but never fails on missing data.
type ExchangeRateResolver interface {
	Resolve(ctx context.Context, date time.Time) (decimal.Decimal, error)
}

type recalculationServiceImpl struct {
	accounts  AccountDirectory
	balance   BalanceService
	snapshots SnapshotService
	rates     ExchangeRateResolver
	workers   int
}

// NewRecalculationService returns the orchestrator that replays a date range
// and rewrites the snapshots it covers. workers bounds the per-date fan-out
// across (account, currency) cells.
func NewRecalculationService(accounts AccountDirectory, balance BalanceService, snapshots SnapshotService, rates ExchangeRateResolver, workers int) RecalculationService {
	if workers < 1 {
		workers = 1
	}
	return &recalculationServiceImpl{
		accounts:  accounts,
		balance:   balance,
		snapshots: snapshots,
		rates:     rates,
		workers:   workers,
	}
}

type recalcCell struct {
	account  models.Account
	currency string
}

func (s *recalculationServiceImpl) Recalculate(ctx context.Context, start, end time.Time, accountID string) (*RecalcSummary, error) {
	start = models.DateOnly(start)
	if end.IsZero() {
		end = time.Now().UTC()
	}
	end = models.DateOnly(end)

	// Structural errors abort before any writes.
	if start.After(end) {
		return nil, fmt.Errorf("%s after %s: %w", models.FormatDate(start), models.FormatDate(end), ErrInvalidRange)
	}
	accounts, err := s.targetAccounts(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var cells []recalcCell
	for _, account := range accounts {
		for _, currency := range account.AllowedCurrencies {
			cells = append(cells, recalcCell{account: account, currency: currency})
		}
	}

	log := logger.FromContext(ctx)
	log.Info("Starting snapshot recalculation",
		"start", models.FormatDate(start), "end", models.FormatDate(end),
		"accounts", len(accounts), "cellsPerDate", len(cells))

	summary := &RecalcSummary{}
	var mu sync.Mutex

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		// Cancellation checkpoint between dates. Snapshots already written
		// are complete, self-consistent overwrites and stay valid.
		if err := ctx.Err(); err != nil {
			log.Warn("Recalculation cancelled, keeping partial progress",
				"lastDate", models.FormatDate(date.AddDate(0, 0, -1)),
				"written", len(summary.Results))
			return summary, err
		}

		// Resolve the rate once per date, before any of the date's cells
		// write, so every cell of the date sees the same rate regardless of
		// write order.
		rate, err := s.rates.Resolve(ctx, date)
		if err != nil {
			return summary, fmt.Errorf("resolving exchange rate for %s: %w", models.FormatDate(date), err)
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for _, cell := range cells {
			g.Go(func() error {
				snapshotID, err := s.recalculateCell(gCtx, cell, date, rate)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					// A single malformed cell must not abort the range; the
					// operation exists to be re-run over broken history.
					summary.Errors = append(summary.Errors, RecalcError{
						Date:      date,
						AccountID: cell.account.ID,
						Currency:  cell.currency,
						Message:   err.Error(),
					})
					return nil
				}
				summary.Results = append(summary.Results, RecalcResult{
					Date:       date,
					AccountID:  cell.account.ID,
					Currency:   cell.currency,
					SnapshotID: snapshotID,
				})
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return summary, err
		}
	}

	sortSummary(summary)
	log.Info("Snapshot recalculation finished",
		"written", len(summary.Results), "failed", len(summary.Errors))
	return summary, nil
}

func (s *recalculationServiceImpl) recalculateCell(ctx context.Context, cell recalcCell, date time.Time, rate decimal.Decimal) (string, error) {
	stockValue, cashBalance, err := s.balance.CalculateBalance(ctx, cell.account.ID, cell.currency, date)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to calculate balance for cell",
			"accountID", cell.account.ID, "currency", cell.currency,
			"date", models.FormatDate(date), "error", err)
		return "", err
	}
	return s.snapshots.Capture(ctx, CaptureInput{
		AccountID:    cell.account.ID,
		Date:         date,
		Currency:     cell.currency,
		StockValue:   stockValue,
		CashBalance:  cashBalance,
		ExchangeRate: &rate,
	})
}

func (s *recalculationServiceImpl) targetAccounts(ctx context.Context, accountID string) ([]models.Account, error) {
	if accountID != "" {
		account, err := s.accounts.GetAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		return []models.Account{*account}, nil
	}
	return s.accounts.ListActiveAccounts(ctx)
}

func (s *recalculationServiceImpl) RecalculateDay(ctx context.Context, date time.Time) ([]DayResult, error) {
	date = models.DateOnly(date)
	summary, err := s.Recalculate(ctx, date, date, "")
	if err != nil {
		return nil, err
	}

	accounts, err := s.accounts.ListActiveAccounts(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.AccountName
	}

	results := make([]DayResult, 0, len(summary.Results))
	for _, r := range summary.Results {
		results = append(results, DayResult{
			SnapshotID:  r.SnapshotID,
			AccountName: names[r.AccountID],
			Date:        r.Date,
			Currency:    r.Currency,
		})
	}
	for _, e := range summary.Errors {
		logger.FromContext(ctx).Error("Cell failed during single-day recalculation",
			"accountID", e.AccountID, "currency", e.Currency, "error", e.Message)
	}
	return results, nil
}

// sortSummary fixes a deterministic order after the concurrent fan-out.
func sortSummary(summary *RecalcSummary) {
	sort.Slice(summary.Results, func(i, j int) bool {
		a, b := summary.Results[i], summary.Results[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		return a.Currency < b.Currency
	})
	sort.Slice(summary.Errors, func(i, j int) bool {
		a, b := summary.Errors[i], summary.Errors[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		return a.Currency < b.Currency
	})
}
