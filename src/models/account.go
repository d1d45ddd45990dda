package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Account represents one investment account. Accounts are seed data for the
// valuation core: created once, never mutated by the snapshot engine.
type Account struct {
	ID                  string          `json:"id"`
	AccountNumber       int             `json:"account_number"`
	AccountName         string          `json:"account_name"`
	StrategyDescription string          `json:"strategy_description,omitempty"`
	AllowedCurrencies   []string        `json:"allowed_currencies"`
	InitialSeedMoneyKRW decimal.Decimal `json:"initial_seed_money_krw"`
	InitialSeedMoneyUSD decimal.Decimal `json:"initial_seed_money_usd"`
	IsActive            bool            `json:"is_active"`
	CreatedAt           time.Time       `json:"created_at"`
}

// AllowsCurrency reports whether the account may hold the given currency.
func (a *Account) AllowsCurrency(currency string) bool {
	for _, c := range a.AllowedCurrencies {
		if strings.EqualFold(c, currency) {
			return true
		}
	}
	return false
}

// InitialSeed returns the configured seed money for the given currency.
// Unknown currencies seed at zero; the allowed-currency check happens upstream.
func (a *Account) InitialSeed(currency string) decimal.Decimal {
	switch strings.ToUpper(currency) {
	case "KRW":
		return a.InitialSeedMoneyKRW
	case "USD":
		return a.InitialSeedMoneyUSD
	}
	return decimal.Zero
}
