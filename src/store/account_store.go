package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/username/snapfolio/backend/src/models"
	"github.com/username/snapfolio/backend/src/services"
)

// AccountStore reads the accounts table. Accounts are seed data; the
// valuation core never writes them.
type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

const accountColumns = `id, account_number, account_name, COALESCE(strategy_description, ''),
	allowed_currencies, initial_seed_money_krw, initial_seed_money_usd, is_active, created_at`

func (s *AccountStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", id, services.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("querying account %s: %w", id, err)
	}
	return account, nil
}

func (s *AccountStore) GetAccountByNumber(ctx context.Context, number int) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account_number = ?`, number)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account number %d: %w", number, services.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("querying account number %d: %w", number, err)
	}
	return account, nil
}

func (s *AccountStore) ListActiveAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE is_active = 1 ORDER BY account_number`)
	if err != nil {
		return nil, fmt.Errorf("listing active accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var currenciesCSV string
	var createdAt time.Time
	if err := row.Scan(
		&a.ID,
		&a.AccountNumber,
		&a.AccountName,
		&a.StrategyDescription,
		&currenciesCSV,
		&a.InitialSeedMoneyKRW,
		&a.InitialSeedMoneyUSD,
		&a.IsActive,
		&createdAt,
	); err != nil {
		return nil, err
	}
	a.CreatedAt = createdAt
	for _, c := range strings.Split(currenciesCSV, ",") {
		if c = strings.TrimSpace(c); c != "" {
			a.AllowedCurrencies = append(a.AllowedCurrencies, strings.ToUpper(c))
		}
	}
	return &a, nil
}
