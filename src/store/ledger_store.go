package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/username/snapfolio/backend/src/models"
)

// LedgerStore reads the append-only stock/cash transaction ledger.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

const stockTxnColumns = `id, account_id, transaction_type, COALESCE(country, ''),
	COALESCE(stock_name, ''), ticker, currency, trade_price, quantity, fee, transaction_date`

func (s *LedgerStore) StockTransactionsThrough(ctx context.Context, accountID, currency string, asOf time.Time) ([]models.StockTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stockTxnColumns+` FROM stock_transactions
		 WHERE account_id = ? AND currency = ? AND transaction_date <= ?
		 ORDER BY transaction_date, created_at`,
		accountID, currency, models.FormatDate(asOf))
	if err != nil {
		return nil, fmt.Errorf("querying stock transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()
	return scanStockTransactions(rows)
}

func (s *LedgerStore) StockTransactionsByAccount(ctx context.Context, accountID string) ([]models.StockTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stockTxnColumns+` FROM stock_transactions
		 WHERE account_id = ?
		 ORDER BY transaction_date, created_at`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("querying stock transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()
	return scanStockTransactions(rows)
}

func (s *LedgerStore) CashTransactionsThrough(ctx context.Context, accountID, currency string, asOf time.Time) ([]models.CashTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, transaction_type, currency, amount, COALESCE(description, ''), transaction_date
		 FROM cash_transactions
		 WHERE account_id = ? AND currency = ? AND transaction_date <= ?
		 ORDER BY transaction_date, created_at`,
		accountID, currency, models.FormatDate(asOf))
	if err != nil {
		return nil, fmt.Errorf("querying cash transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var txns []models.CashTransaction
	for rows.Next() {
		var t models.CashTransaction
		var dateStr string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.TransactionType, &t.Currency, &t.Amount, &t.Description, &dateStr); err != nil {
			return nil, fmt.Errorf("scanning cash transaction row: %w", err)
		}
		if t.TransactionDate, err = models.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("parsing cash transaction date %q: %w", dateStr, err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func scanStockTransactions(rows *sql.Rows) ([]models.StockTransaction, error) {
	var txns []models.StockTransaction
	for rows.Next() {
		var t models.StockTransaction
		var dateStr string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.TransactionType, &t.Country, &t.StockName,
			&t.Ticker, &t.Currency, &t.TradePrice, &t.Quantity, &t.Fee, &dateStr); err != nil {
			return nil, fmt.Errorf("scanning stock transaction row: %w", err)
		}
		var err error
		if t.TransactionDate, err = models.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("parsing stock transaction date %q: %w", dateStr, err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
