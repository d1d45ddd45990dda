package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/logger"
	"github.com/username/snapfolio/backend/src/models"
)

func init() {
	logger.InitLogger("error")
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func day(s string) time.Time {
	t, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// --- In-memory fakes shared across the service tests ---

type fakeAccounts struct {
	accounts []models.Account
}

func (f *fakeAccounts) GetAccount(_ context.Context, id string) (*models.Account, error) {
	for i := range f.accounts {
		if f.accounts[i].ID == id {
			return &f.accounts[i], nil
		}
	}
	return nil, fmt.Errorf("account %s: %w", id, ErrAccountNotFound)
}

func (f *fakeAccounts) GetAccountByNumber(_ context.Context, number int) (*models.Account, error) {
	for i := range f.accounts {
		if f.accounts[i].AccountNumber == number {
			return &f.accounts[i], nil
		}
	}
	return nil, fmt.Errorf("account number %d: %w", number, ErrAccountNotFound)
}

func (f *fakeAccounts) ListActiveAccounts(_ context.Context) ([]models.Account, error) {
	var active []models.Account
	for _, a := range f.accounts {
		if a.IsActive {
			active = append(active, a)
		}
	}
	return active, nil
}

type fakeLedger struct {
	stock []models.StockTransaction
	cash  []models.CashTransaction
}

func (f *fakeLedger) StockTransactionsThrough(_ context.Context, accountID, currency string, asOf time.Time) ([]models.StockTransaction, error) {
	var out []models.StockTransaction
	for _, t := range f.stock {
		if t.AccountID == accountID && t.Currency == currency && !t.TransactionDate.After(asOf) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeLedger) StockTransactionsByAccount(_ context.Context, accountID string) ([]models.StockTransaction, error) {
	var out []models.StockTransaction
	for _, t := range f.stock {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeLedger) CashTransactionsThrough(_ context.Context, accountID, currency string, asOf time.Time) ([]models.CashTransaction, error) {
	var out []models.CashTransaction
	for _, t := range f.cash {
		if t.AccountID == accountID && t.Currency == currency && !t.TransactionDate.After(asOf) {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakePrices struct {
	prices map[string]decimal.Decimal
}

func (f *fakePrices) GetPrice(_ context.Context, ticker string) (decimal.Decimal, bool, error) {
	price, ok := f.prices[ticker]
	return price, ok, nil
}

func (f *fakePrices) GetPrices(_ context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, ticker := range tickers {
		if price, ok := f.prices[ticker]; ok {
			out[ticker] = price
		}
	}
	return out, nil
}

func (f *fakePrices) CacheStatus(_ context.Context) (*models.PriceCacheStatus, error) {
	return &models.PriceCacheStatus{TotalActive: len(f.prices), Successful: len(f.prices)}, nil
}

type fakeSnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]*models.PortfolioSnapshot
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{snaps: make(map[string]*models.PortfolioSnapshot)}
}

func snapKey(accountID string, date time.Time, currency string) string {
	return accountID + "|" + models.FormatDate(date) + "|" + currency
}

func (f *fakeSnapshotStore) Get(_ context.Context, accountID string, date time.Time, currency string) (*models.PortfolioSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if snap, ok := f.snaps[snapKey(accountID, date, currency)]; ok {
		cp := *snap
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeSnapshotStore) Save(_ context.Context, snap *models.PortfolioSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *snap
	f.snaps[snapKey(snap.AccountID, snap.SnapshotDate, snap.Currency)] = &cp
	return nil
}

func (f *fakeSnapshotStore) EarliestTotal(_ context.Context, accountID, currency string) (*decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var earliest *models.PortfolioSnapshot
	for _, snap := range f.snaps {
		if snap.AccountID != accountID || snap.Currency != currency {
			continue
		}
		if earliest == nil || snap.SnapshotDate.Before(earliest.SnapshotDate) {
			earliest = snap
		}
	}
	if earliest == nil {
		return nil, nil
	}
	total := earliest.TotalValue
	return &total, nil
}

func (f *fakeSnapshotStore) RateForDate(_ context.Context, date time.Time) (*decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, snap := range f.snaps {
		if snap.SnapshotDate.Equal(date) && snap.ExchangeRate != nil {
			rate := *snap.ExchangeRate
			return &rate, nil
		}
	}
	return nil, nil
}

func (f *fakeSnapshotStore) History(_ context.Context, accountID, currency string, days int) ([]models.PortfolioSnapshot, error) {
	cutoff := models.DateOnly(time.Now().UTC()).AddDate(0, 0, -days)
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PortfolioSnapshot
	for _, snap := range f.snaps {
		if snap.AccountID == accountID && snap.Currency == currency && !snap.SnapshotDate.Before(cutoff) {
			out = append(out, *snap)
		}
	}
	sortSnapshotsByDate(out)
	return out, nil
}

func (f *fakeSnapshotStore) ListSince(_ context.Context, date time.Time) ([]models.PortfolioSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PortfolioSnapshot
	for _, snap := range f.snaps {
		if !snap.SnapshotDate.Before(date) {
			out = append(out, *snap)
		}
	}
	sortSnapshotsByDate(out)
	return out, nil
}

func sortSnapshotsByDate(snaps []models.PortfolioSnapshot) {
	for i := 1; i < len(snaps); i++ {
		for j := i; j > 0 && snaps[j].SnapshotDate.Before(snaps[j-1].SnapshotDate); j-- {
			snaps[j], snaps[j-1] = snaps[j-1], snaps[j]
		}
	}
}

type fakeRateResolver struct {
	rate decimal.Decimal
}

func (f *fakeRateResolver) Resolve(_ context.Context, _ time.Time) (decimal.Decimal, error) {
	return f.rate, nil
}

// testAccount returns a dual-currency account with the given KRW/USD seeds.
func testAccount(id string, number int, seedKRW, seedUSD string) models.Account {
	return models.Account{
		ID:                  id,
		AccountNumber:       number,
		AccountName:         fmt.Sprintf("Account %d", number),
		AllowedCurrencies:   []string{"KRW", "USD"},
		InitialSeedMoneyKRW: d(seedKRW),
		InitialSeedMoneyUSD: d(seedUSD),
		IsActive:            true,
	}
}

func buy(accountID, ticker, currency, price string, qty int64, fee, date string) models.StockTransaction {
	return models.StockTransaction{
		ID:              fmt.Sprintf("%s-%s-%s-buy", accountID, ticker, date),
		AccountID:       accountID,
		TransactionType: models.TransactionTypeBuy,
		Ticker:          ticker,
		Currency:        currency,
		TradePrice:      d(price),
		Quantity:        qty,
		Fee:             d(fee),
		TransactionDate: day(date),
	}
}

func sell(accountID, ticker, currency, price string, qty int64, fee, date string) models.StockTransaction {
	return models.StockTransaction{
		ID:              fmt.Sprintf("%s-%s-%s-sell", accountID, ticker, date),
		AccountID:       accountID,
		TransactionType: models.TransactionTypeSell,
		Ticker:          ticker,
		Currency:        currency,
		TradePrice:      d(price),
		Quantity:        qty,
		Fee:             d(fee),
		TransactionDate: day(date),
	}
}

func cashTxn(accountID, txnType, currency, amount, date string) models.CashTransaction {
	return models.CashTransaction{
		ID:              fmt.Sprintf("%s-%s-%s", accountID, txnType, date),
		AccountID:       accountID,
		TransactionType: txnType,
		Currency:        currency,
		Amount:          d(amount),
		TransactionDate: day(date),
	}
}
