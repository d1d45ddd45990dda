package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/logger"
	"github.com/username/snapfolio/backend/src/models"
)

type balanceServiceImpl struct {
	accounts AccountDirectory
	ledger   LedgerStore
	prices   PriceReader
}

// NewBalanceService returns the closed-form balance calculator. Every call
// replays the full ledger up to the as-of date instead of advancing a running
// balance, which is what makes recalculation idempotent.
func NewBalanceService(accounts AccountDirectory, ledger LedgerStore, prices PriceReader) BalanceService {
	return &balanceServiceImpl{accounts: accounts, ledger: ledger, prices: prices}
}

// checkAccountCurrency resolves the account and guards the currency.
// The currency check should be unreachable given validated ledger writes,
// but a wrong currency here would silently produce a meaningless balance.
func (s *balanceServiceImpl) checkAccountCurrency(ctx context.Context, accountID, currency string) (*models.Account, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.AllowsCurrency(currency) {
		return nil, fmt.Errorf("currency %s for account %s: %w", currency, accountID, ErrInvalidCurrency)
	}
	return account, nil
}

func (s *balanceServiceImpl) CalculateBalance(ctx context.Context, accountID, currency string, asOf time.Time) (decimal.Decimal, decimal.Decimal, error) {
	account, err := s.checkAccountCurrency(ctx, accountID, currency)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	asOf = models.DateOnly(asOf)

	stockTxns, err := s.ledger.StockTransactionsThrough(ctx, accountID, currency, asOf)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	stockValue, err := s.valueHoldings(ctx, accountID, stockTxns)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	cashBalance, err := s.cashBalance(ctx, account, currency, asOf, stockTxns)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return stockValue, cashBalance, nil
}

func (s *balanceServiceImpl) CalculateCashBalance(ctx context.Context, accountID, currency string, asOf time.Time) (decimal.Decimal, error) {
	account, err := s.checkAccountCurrency(ctx, accountID, currency)
	if err != nil {
		return decimal.Zero, err
	}
	asOf = models.DateOnly(asOf)

	stockTxns, err := s.ledger.StockTransactionsThrough(ctx, accountID, currency, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return s.cashBalance(ctx, account, currency, asOf, stockTxns)
}

// cashBalance is the closed-form replay:
//
//	seed + deposits + RP interest + adjustments(+)
//	     - withdrawals - adjustments(-)
//	     - buy cost (incl. fee) + sell proceeds (net of fee)
func (s *balanceServiceImpl) cashBalance(ctx context.Context, account *models.Account, currency string, asOf time.Time, stockTxns []models.StockTransaction) (decimal.Decimal, error) {
	cashTxns, err := s.ledger.CashTransactionsThrough(ctx, account.ID, currency, asOf)
	if err != nil {
		return decimal.Zero, err
	}

	balance := account.InitialSeed(currency)
	for _, t := range cashTxns {
		balance = balance.Add(t.SignedAmount())
	}
	for _, t := range stockTxns {
		balance = balance.Add(t.CashImpact())
	}
	return balance, nil
}

// valueHoldings nets buys against sells per ticker and values the open
// positions with cached prices. A ticker without a usable price contributes
// zero (a known source of undervaluation, logged, never fatal); a negative
// net quantity is broken ledger data and fails the calculation.
func (s *balanceServiceImpl) valueHoldings(ctx context.Context, accountID string, stockTxns []models.StockTransaction) (decimal.Decimal, error) {
	netQty := make(map[string]int64)
	for _, t := range stockTxns {
		if t.TransactionType == models.TransactionTypeBuy {
			netQty[t.Ticker] += t.Quantity
		} else {
			netQty[t.Ticker] -= t.Quantity
		}
	}

	var held []string
	for ticker, qty := range netQty {
		if qty < 0 {
			return decimal.Zero, fmt.Errorf("ticker %s in account %s has net quantity %d: %w",
				ticker, accountID, qty, ErrNegativeHoldings)
		}
		if qty > 0 {
			held = append(held, ticker)
		}
	}
	if len(held) == 0 {
		return decimal.Zero, nil
	}
	sort.Strings(held)

	prices, err := s.prices.GetPrices(ctx, held)
	if err != nil {
		return decimal.Zero, err
	}

	stockValue := decimal.Zero
	for _, ticker := range held {
		price, ok := prices[ticker]
		if !ok {
			logger.FromContext(ctx).Warn("No usable cached price for held ticker, contributing zero value",
				"ticker", ticker, "accountID", accountID, "quantity", netQty[ticker])
			continue
		}
		stockValue = stockValue.Add(price.Mul(decimal.NewFromInt(netQty[ticker])))
	}
	return stockValue, nil
}

func (s *balanceServiceImpl) CashSummary(ctx context.Context, accountID, currency string) (*models.CashSummary, error) {
	account, err := s.checkAccountCurrency(ctx, accountID, currency)
	if err != nil {
		return nil, err
	}
	today := models.DateOnly(time.Now().UTC())

	cashTxns, err := s.ledger.CashTransactionsThrough(ctx, accountID, currency, today)
	if err != nil {
		return nil, err
	}
	stockTxns, err := s.ledger.StockTransactionsThrough(ctx, accountID, currency, today)
	if err != nil {
		return nil, err
	}

	summary := &models.CashSummary{InitialSeed: account.InitialSeed(currency)}
	for _, t := range cashTxns {
		switch t.TransactionType {
		case models.CashTypeDeposit:
			summary.TotalDeposits = summary.TotalDeposits.Add(t.Amount)
		case models.CashTypeWithdrawal:
			summary.TotalWithdrawals = summary.TotalWithdrawals.Add(t.Amount)
		case models.CashTypeRPInterest:
			summary.TotalRPInterest = summary.TotalRPInterest.Add(t.Amount)
		case models.CashTypeAdjustmentIncrease:
			summary.TotalAdjustmentsIncrease = summary.TotalAdjustmentsIncrease.Add(t.Amount)
		case models.CashTypeAdjustmentDecrease:
			summary.TotalAdjustmentsDecrease = summary.TotalAdjustmentsDecrease.Add(t.Amount)
		}
	}
	for _, t := range stockTxns {
		summary.StockInvested = summary.StockInvested.Sub(t.CashImpact())
	}

	summary.CurrentCashBalance = summary.InitialSeed.
		Add(summary.TotalDeposits).
		Add(summary.TotalRPInterest).
		Add(summary.TotalAdjustmentsIncrease).
		Sub(summary.TotalWithdrawals).
		Sub(summary.TotalAdjustmentsDecrease).
		Sub(summary.StockInvested)
	return summary, nil
}

func (s *balanceServiceImpl) CalculateHoldings(ctx context.Context, accountID string, asOf time.Time) ([]models.Holding, error) {
	if _, err := s.accounts.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	asOf = models.DateOnly(asOf)

	txns, err := s.ledger.StockTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	type position struct {
		buyQty, sellQty int64
		buyCost         decimal.Decimal
		first           models.StockTransaction
	}
	positions := make(map[string]*position)
	for _, t := range txns {
		if t.TransactionDate.After(asOf) {
			continue
		}
		pos, ok := positions[t.Ticker]
		if !ok {
			pos = &position{first: t}
			positions[t.Ticker] = pos
		}
		if t.TransactionType == models.TransactionTypeBuy {
			pos.buyQty += t.Quantity
			pos.buyCost = pos.buyCost.Add(t.GrossAmount().Add(t.Fee))
		} else {
			pos.sellQty += t.Quantity
		}
	}

	var tickers []string
	for ticker, pos := range positions {
		if pos.buyQty-pos.sellQty > 0 {
			tickers = append(tickers, ticker)
		}
	}
	sort.Strings(tickers)

	prices, err := s.prices.GetPrices(ctx, tickers)
	if err != nil {
		return nil, err
	}

	holdings := make([]models.Holding, 0, len(tickers))
	for _, ticker := range tickers {
		pos := positions[ticker]
		qty := pos.buyQty - pos.sellQty

		// Average price is derived from buys only, so it does not move
		// when part of the position is sold.
		avgPrice := decimal.Zero
		if pos.buyQty > 0 {
			avgPrice = pos.buyCost.Div(decimal.NewFromInt(pos.buyQty))
		}
		costBasis := avgPrice.Mul(decimal.NewFromInt(qty))

		h := models.Holding{
			AccountID:      accountID,
			Ticker:         ticker,
			StockName:      pos.first.StockName,
			Country:        pos.first.Country,
			Currency:       pos.first.Currency,
			Quantity:       qty,
			AvgPrice:       avgPrice,
			TotalCostBasis: costBasis,
		}
		if price, ok := prices[ticker]; ok {
			h.CurrentPrice = price
			h.MarketValue = price.Mul(decimal.NewFromInt(qty))
			h.UnrealizedPL = h.MarketValue.Sub(costBasis)
			if costBasis.IsPositive() {
				h.ReturnPct = h.UnrealizedPL.Div(costBasis).Mul(decimal.NewFromInt(100))
			}
		} else {
			logger.FromContext(ctx).Warn("No usable cached price for holding",
				"ticker", ticker, "accountID", accountID)
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}
