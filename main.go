package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/username/snapfolio/backend/src/config"
	"github.com/username/snapfolio/backend/src/database"
	"github.com/username/snapfolio/backend/src/handlers"
	"github.com/username/snapfolio/backend/src/logger"
	"github.com/username/snapfolio/backend/src/processors"
	"github.com/username/snapfolio/backend/src/services"
	"github.com/username/snapfolio/backend/src/store"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Snapfolio snapshot service starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	accountStore := store.NewAccountStore(database.DB)
	ledgerStore := store.NewLedgerStore(database.DB)
	priceStore := store.NewPriceStore(database.DB)
	snapshotStore := store.NewSnapshotStore(database.DB)
	marketIndexStore := store.NewMarketIndexStore(database.DB)

	priceReader := services.NewCachingPriceReader(priceStore)
	rateResolver := processors.NewRateResolver(snapshotStore, marketIndexStore, config.Cfg.DefaultExchangeRate)

	balanceService := services.NewBalanceService(accountStore, ledgerStore, priceReader)
	baselinePolicy := services.NewTieredBaselinePolicy(config.Cfg.BaselineValues, snapshotStore)
	snapshotService := services.NewSnapshotService(snapshotStore, baselinePolicy)
	recalcService := services.NewRecalculationService(accountStore, balanceService, snapshotService, rateResolver, config.Cfg.RecalcWorkers)
	aggregateService := services.NewAggregateService(snapshotStore, config.Cfg.BaseCurrency, config.Cfg.DefaultExchangeRate)
	reportingService := services.NewReportingService(accountStore, ledgerStore)

	portfolioHandler := handlers.NewPortfolioHandler(balanceService, snapshotService, aggregateService, reportingService)
	recalcHandler := handlers.NewRecalculationHandler(recalcService, snapshotService)
	accountHandler := handlers.NewAccountHandler(accountStore)
	marketHandler := handlers.NewMarketHandler(priceReader, marketIndexStore)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(rateLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/accounts", accountHandler.HandleListAccounts)
		r.Get("/accounts/{accountID}", accountHandler.HandleGetAccount)
		r.Get("/accounts/by-number/{accountNumber}", accountHandler.HandleGetAccountByNumber)
		r.Get("/accounts/{accountID}/cash-balance", portfolioHandler.HandleGetCashBalance)
		r.Get("/accounts/{accountID}/cash-summary", portfolioHandler.HandleGetCashSummary)
		r.Get("/accounts/{accountID}/holdings", portfolioHandler.HandleGetHoldings)
		r.Get("/accounts/{accountID}/history", portfolioHandler.HandleGetPortfolioHistory)
		r.Get("/accounts/{accountID}/closed-positions", portfolioHandler.HandleGetClosedPositions)
		r.Get("/accounts/{accountID}/win-rate", portfolioHandler.HandleGetWinRate)

		r.Get("/portfolio/aggregate-history", portfolioHandler.HandleGetAggregateHistory)

		r.Post("/snapshots/capture", recalcHandler.HandleCaptureSnapshot)
		r.Post("/snapshots/recalculate", recalcHandler.HandleRecalculate)
		r.Post("/snapshots/recalculate-day", recalcHandler.HandleRecalculateDay)

		r.Get("/market/price-cache-status", marketHandler.HandleGetPriceCacheStatus)
		r.Post("/market/indices", marketHandler.HandleUpsertMarketIndex)
	})

	addr := ":" + config.Cfg.Port
	logger.L.Info("HTTP server listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.L.Error("HTTP server stopped", "error", err)
	}
}
