package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot is a persisted valuation record for one
// (account, date, currency) triple. Exactly one row exists per triple;
// recomputation overwrites in place.
type PortfolioSnapshot struct {
	ID            string           `json:"id"`
	AccountID     string           `json:"account_id"`
	SnapshotDate  time.Time        `json:"snapshot_date"`
	Currency      string           `json:"currency"`
	StockValue    decimal.Decimal  `json:"stock_value"`
	CashBalance   decimal.Decimal  `json:"cash_balance"`
	TotalValue    decimal.Decimal  `json:"total_value"`
	BaselineValue decimal.Decimal  `json:"baseline_value"`
	ValueChange   decimal.Decimal  `json:"value_change"`
	ChangePct     decimal.Decimal  `json:"change_pct"`
	ExchangeRate  *decimal.Decimal `json:"exchange_rate,omitempty"` // nil when never resolved
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// MarketIndexSnapshot is the account-independent daily record of index closes
// and the USD/base exchange rate. Ingestion happens outside this service;
// fields are nullable because market data arrives with gaps.
type MarketIndexSnapshot struct {
	SnapshotDate time.Time        `json:"snapshot_date"`
	SPXClose     *decimal.Decimal `json:"spx_close,omitempty"`
	NDXClose     *decimal.Decimal `json:"ndx_close,omitempty"`
	KOSPIClose   *decimal.Decimal `json:"kospi_close,omitempty"`
	USDKRWRate   *decimal.Decimal `json:"usd_krw_rate,omitempty"`
}

// AggregatePoint is one date of the cross-account, cross-currency combined
// series, normalized to the base currency.
type AggregatePoint struct {
	Date         time.Time       `json:"snapshot_date"`
	TotalValue   decimal.Decimal `json:"total_value"`
	TotalChange  decimal.Decimal `json:"total_change"`
	AvgChangePct decimal.Decimal `json:"avg_change_pct"`
}
