package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/models"
)

// Define common service errors.
var (
	// ErrInvalidRange means the requested start date is after the end date.
	// Surfaced before any work is performed.
	ErrInvalidRange = errors.New("invalid date range: start date is after end date")
	// ErrAccountNotFound means an explicitly supplied account id is unknown.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCurrency means the currency is not in the account's allowed
	// set. Ledger writes are validated upstream, so hitting this indicates
	// corrupted data; fail loudly rather than compute a meaningless balance.
	ErrInvalidCurrency = errors.New("currency not allowed for account")
	// ErrNegativeHoldings means cumulative sells exceed cumulative buys for a
	// ticker. That is broken ledger data, not a short position; it is flagged
	// instead of being clamped or valued.
	ErrNegativeHoldings = errors.New("negative holdings: sell quantity exceeds cumulative buys")
)

// AccountDirectory lists the accounts the valuation core operates on.
type AccountDirectory interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByNumber(ctx context.Context, number int) (*models.Account, error)
	ListActiveAccounts(ctx context.Context) ([]models.Account, error)
}

// LedgerStore reads the immutable stock/cash transaction ledger. The
// valuation core never writes it.
type LedgerStore interface {
	// StockTransactionsThrough returns the account's stock transactions in
	// the given currency with transaction_date <= asOf, ascending by date.
	StockTransactionsThrough(ctx context.Context, accountID, currency string, asOf time.Time) ([]models.StockTransaction, error)
	// StockTransactionsByAccount returns all of the account's stock
	// transactions across currencies, ascending by date.
	StockTransactionsByAccount(ctx context.Context, accountID string) ([]models.StockTransaction, error)
	// CashTransactionsThrough returns the account's cash transactions in the
	// given currency with transaction_date <= asOf, ascending by date.
	CashTransactionsThrough(ctx context.Context, accountID, currency string, asOf time.Time) ([]models.CashTransaction, error)
}

// PriceReader is the read-only view of the external price cache.
type PriceReader interface {
	// GetPrice returns the last known usable price for a ticker. The second
	// return value is false when no usable entry exists.
	GetPrice(ctx context.Context, ticker string) (decimal.Decimal, bool, error)
	// GetPrices batch-resolves prices; tickers without a usable entry are
	// absent from the result map.
	GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
	// CacheStatus summarizes cache health for monitoring.
	CacheStatus(ctx context.Context) (*models.PriceCacheStatus, error)
}

// SnapshotStore persists portfolio snapshots. It is the only structure the
// valuation core mutates.
type SnapshotStore interface {
	// Get returns the snapshot for the triple, or nil when absent.
	Get(ctx context.Context, accountID string, date time.Time, currency string) (*models.PortfolioSnapshot, error)
	// Save upserts the snapshot keyed by (account, date, currency),
	// overwriting every field. Field-level merge policy is the caller's job.
	Save(ctx context.Context, snap *models.PortfolioSnapshot) error
	// EarliestTotal returns the total_value of the oldest snapshot for the
	// account and currency, or nil when none has ever been captured.
	EarliestTotal(ctx context.Context, accountID, currency string) (*decimal.Decimal, error)
	// RateForDate returns a stored exchange rate from any snapshot captured
	// for that exact date, or nil when none carries one.
	RateForDate(ctx context.Context, date time.Time) (*decimal.Decimal, error)
	// History returns the account's snapshots in one currency over the last
	// `days` days, ascending by date.
	History(ctx context.Context, accountID, currency string, days int) ([]models.PortfolioSnapshot, error)
	// ListSince returns all snapshots (every account and currency) dated on
	// or after the given date, ascending by date.
	ListSince(ctx context.Context, date time.Time) ([]models.PortfolioSnapshot, error)
}

// MarketIndexStore reads and upserts the daily market-index record, which
// doubles as the historical exchange-rate source.
type MarketIndexStore interface {
	// GetRate returns the USD/base rate recorded for exactly that date, or
	// nil when the date has no record or the record has no rate.
	GetRate(ctx context.Context, date time.Time) (*decimal.Decimal, error)
	// GetLatestRateAtOrBefore returns the most recent recorded rate at or
	// before the date, or nil when no earlier rate exists at all.
	GetLatestRateAtOrBefore(ctx context.Context, date time.Time) (*decimal.Decimal, error)
	// UpsertDay merges the given record into the day's row; nil fields never
	// overwrite previously stored values.
	UpsertDay(ctx context.Context, snap *models.MarketIndexSnapshot) error
}

// BalanceService reconstructs account state as of a date by replaying the
// ledger. The replay is closed-form, so re-running it for the same date and
// the same ledger always yields the same result.
type BalanceService interface {
	// CalculateBalance returns (stock value, cash balance) for the account
	// and currency as of the date.
	CalculateBalance(ctx context.Context, accountID, currency string, asOf time.Time) (decimal.Decimal, decimal.Decimal, error)
	// CalculateCashBalance returns only the cash component.
	CalculateCashBalance(ctx context.Context, accountID, currency string, asOf time.Time) (decimal.Decimal, error)
	// CashSummary breaks the cash balance into its per-type components.
	CashSummary(ctx context.Context, accountID, currency string) (*models.CashSummary, error)
	// CalculateHoldings returns the account's open positions as of the date,
	// enriched with cached prices, across all of its currencies.
	CalculateHoldings(ctx context.Context, accountID string, asOf time.Time) ([]models.Holding, error)
}

// CaptureInput is one snapshot capture request. Baseline and ExchangeRate are
// optional; a nil baseline engages the configured baseline policy and a nil
// exchange rate preserves whatever rate the existing snapshot already holds.
type CaptureInput struct {
	AccountID    string
	Date         time.Time
	Currency     string
	StockValue   decimal.Decimal
	CashBalance  decimal.Decimal
	Baseline     *decimal.Decimal
	ExchangeRate *decimal.Decimal
}

// SnapshotService captures valuation snapshots idempotently.
type SnapshotService interface {
	// Capture upserts the snapshot for (account, date, currency) and returns
	// its id.
	Capture(ctx context.Context, input CaptureInput) (string, error)
	// History returns the account's snapshot rows, ascending by date.
	History(ctx context.Context, accountID, currency string, days int) ([]models.PortfolioSnapshot, error)
}

// RecalcResult identifies one successfully written snapshot cell.
type RecalcResult struct {
	Date       time.Time `json:"date"`
	AccountID  string    `json:"account_id"`
	Currency   string    `json:"currency"`
	SnapshotID string    `json:"snapshot_id"`
}

// RecalcError records one failed cell. Failures never abort the run; the
// whole point of recalculation is re-running it to repair historical data.
type RecalcError struct {
	Date      time.Time `json:"date"`
	AccountID string    `json:"account_id"`
	Currency  string    `json:"currency"`
	Message   string    `json:"message"`
}

// RecalcSummary reports exactly which cells were written and which failed.
type RecalcSummary struct {
	Results []RecalcResult `json:"results"`
	Errors  []RecalcError  `json:"errors"`
}

// DayResult is the richer row returned by the single-date convenience form,
// including the human-readable account name.
type DayResult struct {
	SnapshotID  string    `json:"snapshot_id"`
	AccountName string    `json:"account_name"`
	Date        time.Time `json:"date"`
	Currency    string    `json:"currency"`
}

// RecalculationService replays a date range and rewrites snapshots.
type RecalculationService interface {
	// Recalculate processes every date in [start, end] for every allowed
	// currency of every active account (or just the given account when
	// accountID is non-empty). A zero end defaults to today.
	Recalculate(ctx context.Context, start, end time.Time, accountID string) (*RecalcSummary, error)
	// RecalculateDay recalculates a single date for all active accounts.
	RecalculateDay(ctx context.Context, date time.Time) ([]DayResult, error)
}

// AggregateService combines per-currency snapshots into cross-currency
// portfolio totals.
type AggregateService interface {
	// AggregateHistory returns the combined series over the last `days`
	// days, ascending by date, with non-base totals converted to the base
	// currency using each snapshot's own stored exchange rate.
	AggregateHistory(ctx context.Context, days int) ([]models.AggregatePoint, error)
}

// ReportingService derives FIFO-style realized-P&L reporting from the ledger.
// This is reporting, not authoritative tax-lot accounting.
type ReportingService interface {
	ClosedPositions(ctx context.Context, accountID string) ([]models.ClosedPosition, error)
	WinRate(ctx context.Context, accountID string) (*models.WinRateStats, error)
}
