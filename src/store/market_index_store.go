package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/models"
)

// MarketIndexStore persists the account-independent daily record of index
// closes and the USD/base exchange rate.
type MarketIndexStore struct {
	db *sql.DB
}

func NewMarketIndexStore(db *sql.DB) *MarketIndexStore {
	return &MarketIndexStore{db: db}
}

func (s *MarketIndexStore) GetRate(ctx context.Context, date time.Time) (*decimal.Decimal, error) {
	var rate decimal.NullDecimal
	err := s.db.QueryRowContext(ctx,
		`SELECT usd_krw_rate FROM market_index_snapshots WHERE snapshot_date = ?`,
		models.FormatDate(date)).Scan(&rate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying index rate for %s: %w", models.FormatDate(date), err)
	}
	if !rate.Valid {
		return nil, nil
	}
	return &rate.Decimal, nil
}

func (s *MarketIndexStore) GetLatestRateAtOrBefore(ctx context.Context, date time.Time) (*decimal.Decimal, error) {
	var rate decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT usd_krw_rate FROM market_index_snapshots
		 WHERE snapshot_date <= ? AND usd_krw_rate IS NOT NULL
		 ORDER BY snapshot_date DESC LIMIT 1`,
		models.FormatDate(date)).Scan(&rate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying latest index rate at or before %s: %w", models.FormatDate(date), err)
	}
	return &rate, nil
}

// UpsertDay merges the record into the day's row. COALESCE keeps previously
// stored closes/rates when the incoming field is null, so a partial backfill
// never erases data another source already provided.
func (s *MarketIndexStore) UpsertDay(ctx context.Context, snap *models.MarketIndexSnapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO market_index_snapshots
		   (snapshot_date, spx_close, ndx_close, kospi_close, usd_krw_rate, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (snapshot_date) DO UPDATE SET
		   spx_close = COALESCE(excluded.spx_close, market_index_snapshots.spx_close),
		   ndx_close = COALESCE(excluded.ndx_close, market_index_snapshots.ndx_close),
		   kospi_close = COALESCE(excluded.kospi_close, market_index_snapshots.kospi_close),
		   usd_krw_rate = COALESCE(excluded.usd_krw_rate, market_index_snapshots.usd_krw_rate),
		   updated_at = CURRENT_TIMESTAMP`,
		models.FormatDate(snap.SnapshotDate),
		toNullDecimal(snap.SPXClose), toNullDecimal(snap.NDXClose),
		toNullDecimal(snap.KOSPIClose), toNullDecimal(snap.USDKRWRate))
	if err != nil {
		return fmt.Errorf("upserting market index snapshot for %s: %w", models.FormatDate(snap.SnapshotDate), err)
	}
	return nil
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
