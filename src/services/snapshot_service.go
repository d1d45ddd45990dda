package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/logger"
	"github.com/username/snapfolio/backend/src/models"
)

// BaselinePolicy resolves the reference value percentage change is measured
// against. currentTotal is the total being captured, available as the last
// resort so a brand-new account reports 0% change rather than failing.
type BaselinePolicy func(ctx context.Context, accountID, currency string, currentTotal decimal.Decimal) (decimal.Decimal, error)

// NewTieredBaselinePolicy builds the three-tier resolution:
//  1. a fixed per-account value from configuration,
//  2. the account's earliest captured total for that currency,
//  3. the current total (zero reported change).
//
// Fixed values are injected configuration, never per-account literals in code.
func NewTieredBaselinePolicy(fixed map[string]decimal.Decimal, snapshots SnapshotStore) BaselinePolicy {
	return func(ctx context.Context, accountID, currency string, currentTotal decimal.Decimal) (decimal.Decimal, error) {
		if baseline, ok := fixed[accountID]; ok {
			return baseline, nil
		}
		earliest, err := snapshots.EarliestTotal(ctx, accountID, currency)
		if err != nil {
			return decimal.Zero, err
		}
		if earliest != nil {
			return *earliest, nil
		}
		return currentTotal, nil
	}
}

// mergeExchangeRate applies the one field-level merge rule of the snapshot
// upsert: keep the existing stored rate unless the incoming call explicitly
// supplies one. Everything else is overwritten wholesale.
func mergeExchangeRate(existing, incoming *decimal.Decimal) *decimal.Decimal {
	if incoming != nil {
		return incoming
	}
	return existing
}

// changePct returns change/baseline*100 with the zero-baseline guard: a zero
// or negative baseline reports 0%, not an error and not NaN.
func changePct(change, baseline decimal.Decimal) decimal.Decimal {
	if !baseline.IsPositive() {
		return decimal.Zero
	}
	return change.Div(baseline).Mul(decimal.NewFromInt(100))
}

type snapshotServiceImpl struct {
	snapshots SnapshotStore
	baseline  BaselinePolicy
}

// NewSnapshotService returns the snapshot writer. Captures are idempotent:
// re-capturing the same (account, date, currency) overwrites in place and the
// snapshot id stays stable.
func NewSnapshotService(snapshots SnapshotStore, baseline BaselinePolicy) SnapshotService {
	return &snapshotServiceImpl{snapshots: snapshots, baseline: baseline}
}

func (s *snapshotServiceImpl) Capture(ctx context.Context, input CaptureInput) (string, error) {
	date := models.DateOnly(input.Date)
	total := input.StockValue.Add(input.CashBalance)

	baseline := decimal.Zero
	if input.Baseline != nil {
		baseline = *input.Baseline
	} else {
		var err error
		baseline, err = s.baseline(ctx, input.AccountID, input.Currency, total)
		if err != nil {
			return "", err
		}
	}
	change := total.Sub(baseline)

	existing, err := s.snapshots.Get(ctx, input.AccountID, date, input.Currency)
	if err != nil {
		return "", err
	}

	snap := &models.PortfolioSnapshot{
		AccountID:     input.AccountID,
		SnapshotDate:  date,
		Currency:      input.Currency,
		StockValue:    input.StockValue,
		CashBalance:   input.CashBalance,
		TotalValue:    total,
		BaselineValue: baseline,
		ValueChange:   change,
		ChangePct:     changePct(change, baseline),
	}
	if existing != nil {
		snap.ID = existing.ID
		snap.ExchangeRate = mergeExchangeRate(existing.ExchangeRate, input.ExchangeRate)
	} else {
		snap.ID = uuid.NewString()
		snap.ExchangeRate = input.ExchangeRate
	}

	if err := s.snapshots.Save(ctx, snap); err != nil {
		return "", err
	}
	logger.FromContext(ctx).Debug("Snapshot captured",
		"accountID", input.AccountID, "date", models.FormatDate(date),
		"currency", input.Currency, "total", total.String())
	return snap.ID, nil
}

func (s *snapshotServiceImpl) History(ctx context.Context, accountID, currency string, days int) ([]models.PortfolioSnapshot, error) {
	return s.snapshots.History(ctx, accountID, currency, days)
}
