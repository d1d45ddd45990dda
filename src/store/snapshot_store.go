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

// SnapshotStore persists portfolio snapshots, keyed by the natural
// (account, date, currency) identity.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

const snapshotColumns = `id, account_id, snapshot_date, currency, stock_value, cash_balance,
	total_value, baseline_value, value_change, change_pct, exchange_rate, created_at, updated_at`

func (s *SnapshotStore) Get(ctx context.Context, accountID string, date time.Time, currency string) (*models.PortfolioSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM portfolio_snapshots
		 WHERE account_id = ? AND snapshot_date = ? AND currency = ?`,
		accountID, models.FormatDate(date), currency)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	return snap, nil
}

// Save upserts the snapshot, overwriting every computed field. The snapshot's
// id is kept stable across rewrites of the same cell.
func (s *SnapshotStore) Save(ctx context.Context, snap *models.PortfolioSnapshot) error {
	var rate decimal.NullDecimal
	if snap.ExchangeRate != nil {
		rate = decimal.NullDecimal{Decimal: *snap.ExchangeRate, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO portfolio_snapshots
		   (id, account_id, snapshot_date, currency, stock_value, cash_balance,
		    total_value, baseline_value, value_change, change_pct, exchange_rate, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (account_id, snapshot_date, currency) DO UPDATE SET
		   stock_value = excluded.stock_value,
		   cash_balance = excluded.cash_balance,
		   total_value = excluded.total_value,
		   baseline_value = excluded.baseline_value,
		   value_change = excluded.value_change,
		   change_pct = excluded.change_pct,
		   exchange_rate = excluded.exchange_rate,
		   updated_at = CURRENT_TIMESTAMP`,
		snap.ID, snap.AccountID, models.FormatDate(snap.SnapshotDate), snap.Currency,
		snap.StockValue, snap.CashBalance, snap.TotalValue, snap.BaselineValue,
		snap.ValueChange, snap.ChangePct, rate)
	if err != nil {
		return fmt.Errorf("upserting snapshot for account %s on %s: %w",
			snap.AccountID, models.FormatDate(snap.SnapshotDate), err)
	}
	return nil
}

func (s *SnapshotStore) EarliestTotal(ctx context.Context, accountID, currency string) (*decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT total_value FROM portfolio_snapshots
		 WHERE account_id = ? AND currency = ?
		 ORDER BY snapshot_date LIMIT 1`,
		accountID, currency).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying earliest snapshot total: %w", err)
	}
	return &total, nil
}

func (s *SnapshotStore) RateForDate(ctx context.Context, date time.Time) (*decimal.Decimal, error) {
	var rate decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT exchange_rate FROM portfolio_snapshots
		 WHERE snapshot_date = ? AND exchange_rate IS NOT NULL
		 LIMIT 1`,
		models.FormatDate(date)).Scan(&rate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying snapshot rate for %s: %w", models.FormatDate(date), err)
	}
	return &rate, nil
}

func (s *SnapshotStore) History(ctx context.Context, accountID, currency string, days int) ([]models.PortfolioSnapshot, error) {
	cutoff := models.DateOnly(time.Now().UTC()).AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM portfolio_snapshots
		 WHERE account_id = ? AND currency = ? AND snapshot_date >= ?
		 ORDER BY snapshot_date`,
		accountID, currency, models.FormatDate(cutoff))
	if err != nil {
		return nil, fmt.Errorf("querying snapshot history: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func (s *SnapshotStore) ListSince(ctx context.Context, date time.Time) ([]models.PortfolioSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM portfolio_snapshots
		 WHERE snapshot_date >= ?
		 ORDER BY snapshot_date, account_id, currency`,
		models.FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("querying snapshots since %s: %w", models.FormatDate(date), err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func scanSnapshot(row rowScanner) (*models.PortfolioSnapshot, error) {
	var snap models.PortfolioSnapshot
	var dateStr string
	var rate decimal.NullDecimal
	if err := row.Scan(&snap.ID, &snap.AccountID, &dateStr, &snap.Currency,
		&snap.StockValue, &snap.CashBalance, &snap.TotalValue, &snap.BaselineValue,
		&snap.ValueChange, &snap.ChangePct, &rate, &snap.CreatedAt, &snap.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if snap.SnapshotDate, err = models.ParseDate(dateStr); err != nil {
		return nil, fmt.Errorf("parsing snapshot date %q: %w", dateStr, err)
	}
	if rate.Valid {
		snap.ExchangeRate = &rate.Decimal
	}
	return &snap, nil
}

func scanSnapshots(rows *sql.Rows) ([]models.PortfolioSnapshot, error) {
	var snaps []models.PortfolioSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}
