package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock transaction types.
const (
	TransactionTypeBuy  = "BUY"
	TransactionTypeSell = "SELL"
)

// Cash transaction types. Direction (credit/debit) is determined by the type,
// never by the sign of the amount; amounts are always positive.
const (
	CashTypeDeposit            = "DEPOSIT"
	CashTypeWithdrawal         = "WITHDRAWAL"
	CashTypeRPInterest         = "RP_INTEREST"
	CashTypeAdjustmentIncrease = "ADJUSTMENT_INCREASE"
	CashTypeAdjustmentDecrease = "ADJUSTMENT_DECREASE"
)

// StockTransaction is one immutable buy/sell ledger entry. Corrections are
// modeled as new entries followed by a snapshot recalculation, never as
// in-place mutation.
type StockTransaction struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	TransactionType string          `json:"transaction_type"` // BUY or SELL
	Country         string          `json:"country,omitempty"`
	StockName       string          `json:"stock_name,omitempty"`
	Ticker          string          `json:"ticker"`
	Currency        string          `json:"currency"`
	TradePrice      decimal.Decimal `json:"trade_price"`
	Quantity        int64           `json:"quantity"`
	Fee             decimal.Decimal `json:"fee"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// GrossAmount is trade price times quantity, before fees.
func (t *StockTransaction) GrossAmount() decimal.Decimal {
	return t.TradePrice.Mul(decimal.NewFromInt(t.Quantity))
}

// CashImpact is the signed effect of the trade on the account's cash balance:
// buys cost gross plus fee, sells credit gross minus fee.
func (t *StockTransaction) CashImpact() decimal.Decimal {
	if t.TransactionType == TransactionTypeBuy {
		return t.GrossAmount().Add(t.Fee).Neg()
	}
	return t.GrossAmount().Sub(t.Fee)
}

// CashTransaction is one immutable cash-flow ledger entry (deposit,
// withdrawal, RP interest, or manual adjustment).
type CashTransaction struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	TransactionType string          `json:"transaction_type"`
	Currency        string          `json:"currency"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// SignedAmount maps the transaction type to its credit (+) or debit (-)
// effect on the cash balance.
func (t *CashTransaction) SignedAmount() decimal.Decimal {
	switch t.TransactionType {
	case CashTypeDeposit, CashTypeRPInterest, CashTypeAdjustmentIncrease:
		return t.Amount
	case CashTypeWithdrawal, CashTypeAdjustmentDecrease:
		return t.Amount.Neg()
	}
	return decimal.Zero
}
