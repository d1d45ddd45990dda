package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is the current position in one ticker for one account, derived from
// the ledger. Average price is total buy cost (fees included) divided by total
// buy quantity, so a partial sell never moves it.
type Holding struct {
	AccountID      string          `json:"account_id"`
	Ticker         string          `json:"ticker"`
	StockName      string          `json:"stock_name,omitempty"`
	Country        string          `json:"country,omitempty"`
	Currency       string          `json:"currency"`
	Quantity       int64           `json:"quantity"`
	AvgPrice       decimal.Decimal `json:"avg_price"`
	TotalCostBasis decimal.Decimal `json:"total_cost_basis"`

	// Enriched from the price cache; zero when no usable price exists.
	CurrentPrice decimal.Decimal `json:"current_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
	UnrealizedPL decimal.Decimal `json:"unrealized_pl"`
	ReturnPct    decimal.Decimal `json:"return_pct"`
}

// ClosedPosition is one fully closed round trip in a ticker: the stretch of
// trades from the first buy to the sell that brings the running quantity back
// to zero. Re-entering the same ticker later starts a new position.
type ClosedPosition struct {
	AccountID         string          `json:"account_id"`
	Ticker            string          `json:"ticker"`
	StockName         string          `json:"stock_name,omitempty"`
	Country           string          `json:"country,omitempty"`
	Currency          string          `json:"currency"`
	TotalSharesTraded int64           `json:"total_shares_traded"`
	RealizedPL        decimal.Decimal `json:"realized_pl"`
	RealizedReturnPct decimal.Decimal `json:"realized_return_pct"`
	Result            string          `json:"result"` // Win or Loss
	FirstTradeDate    time.Time       `json:"first_trade_date"`
	LastTradeDate     time.Time       `json:"last_trade_date"`
	HoldingPeriodDays int             `json:"holding_period_days"`
}

// WinRateStats aggregates closed positions into win/loss statistics.
type WinRateStats struct {
	TotalTrades int             `json:"total_trades"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	WinRate     decimal.Decimal `json:"win_rate"`
	AvgWin      decimal.Decimal `json:"avg_win"`
	AvgLoss     decimal.Decimal `json:"avg_loss"`
	TotalPL     decimal.Decimal `json:"total_pl"`
	AvgPL       decimal.Decimal `json:"avg_pl"`
}

// CashSummary breaks the closed-form cash balance into its components.
type CashSummary struct {
	InitialSeed              decimal.Decimal `json:"initial_seed"`
	TotalDeposits            decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals         decimal.Decimal `json:"total_withdrawals"`
	TotalRPInterest          decimal.Decimal `json:"total_rp_interest"`
	TotalAdjustmentsIncrease decimal.Decimal `json:"total_adjustments_increase"`
	TotalAdjustmentsDecrease decimal.Decimal `json:"total_adjustments_decrease"`
	StockInvested            decimal.Decimal `json:"stock_invested"` // net of sells
	CurrentCashBalance       decimal.Decimal `json:"current_cash_balance"`
}
