package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/models"
)

// PriceStore reads the stock_prices cache table. An entry is usable only when
// it is active and its last fetch did not error.
type PriceStore struct {
	db *sql.DB
}

func NewPriceStore(db *sql.DB) *PriceStore {
	return &PriceStore{db: db}
}

func (s *PriceStore) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, bool, error) {
	var price decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT current_price FROM stock_prices
		 WHERE ticker = ? AND is_active = 1 AND fetch_error IS NULL`,
		ticker).Scan(&price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("querying cached price for %s: %w", ticker, err)
	}
	return price, true, nil
}

func (s *PriceStore) GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	if len(tickers) == 0 {
		return prices, nil
	}

	query := `SELECT ticker, current_price FROM stock_prices
		WHERE is_active = 1 AND fetch_error IS NULL
		AND ticker IN (?` + strings.Repeat(",?", len(tickers)-1) + `)`
	args := make([]any, len(tickers))
	for i, t := range tickers {
		args[i] = t
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cached prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticker string
		var price decimal.Decimal
		if err := rows.Scan(&ticker, &price); err != nil {
			return nil, fmt.Errorf("scanning price row: %w", err)
		}
		prices[ticker] = price
	}
	return prices, rows.Err()
}

func (s *PriceStore) CacheStatus(ctx context.Context) (*models.PriceCacheStatus, error) {
	status := &models.PriceCacheStatus{}
	staleThreshold := time.Now().UTC().Add(-48 * time.Hour)

	var lastUpdate sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN fetch_error IS NULL THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN fetch_error IS NOT NULL THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN last_updated < ? THEN 1 ELSE 0 END), 0),
		        MAX(last_updated)
		 FROM stock_prices WHERE is_active = 1`,
		staleThreshold).Scan(&status.TotalActive, &status.Successful, &status.Failed, &status.StaleCount, &lastUpdate)
	if err != nil {
		return nil, fmt.Errorf("querying price cache status: %w", err)
	}
	if lastUpdate.Valid {
		status.LastUpdate = &lastUpdate.Time
	}
	return status, nil
}
