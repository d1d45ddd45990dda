package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceCacheEntry is a row of the external price cache. The valuation core
// only reads this table; a separate fetcher keeps it current. An entry is
// usable when it is active and carries no fetch error.
type PriceCacheEntry struct {
	Ticker       string          `json:"ticker"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Currency     string          `json:"currency"`
	IsActive     bool            `json:"is_active"`
	FetchError   *string         `json:"fetch_error,omitempty"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// Usable reports whether the entry may contribute to a valuation.
func (p *PriceCacheEntry) Usable() bool {
	return p.IsActive && p.FetchError == nil
}

// PriceCacheStatus summarizes the health of the price cache for monitoring.
type PriceCacheStatus struct {
	TotalActive int        `json:"total_active"`
	Successful  int        `json:"successful"`
	Failed      int        `json:"failed"`
	LastUpdate  *time.Time `json:"last_update,omitempty"`
	StaleCount  int        `json:"stale_count"` // not updated for 2+ days
}
