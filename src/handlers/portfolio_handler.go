package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/username/snapfolio/backend/src/config"
	"github.com/username/snapfolio/backend/src/logger"
	"github.com/username/snapfolio/backend/src/models"
	"github.com/username/snapfolio/backend/src/services"
	"github.com/username/snapfolio/backend/src/utils"
)

type PortfolioHandler struct {
	balanceService   services.BalanceService
	snapshotService  services.SnapshotService
	aggregateService services.AggregateService
	reportingService services.ReportingService
}

func NewPortfolioHandler(
	balanceService services.BalanceService,
	snapshotService services.SnapshotService,
	aggregateService services.AggregateService,
	reportingService services.ReportingService,
) *PortfolioHandler {
	return &PortfolioHandler{
		balanceService:   balanceService,
		snapshotService:  snapshotService,
		aggregateService: aggregateService,
		reportingService: reportingService,
	}
}

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidCurrency), errors.Is(err, services.ErrInvalidRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Helper to extract the days window from query params.
func getDaysParam(r *http.Request) (int, error) {
	daysStr := r.URL.Query().Get("days")
	if daysStr == "" {
		return config.Cfg.DefaultHistoryDays, nil
	}
	days, err := strconv.Atoi(daysStr)
	if err != nil || days <= 0 {
		return 0, fmt.Errorf("invalid days parameter %q", daysStr)
	}
	return days, nil
}

// Helper to extract an optional YYYY-MM-DD date param, defaulting to today.
func getDateParam(r *http.Request, name string) (time.Time, error) {
	dateStr := r.URL.Query().Get(name)
	if dateStr == "" {
		return models.DateOnly(time.Now().UTC()), nil
	}
	date, err := models.ParseDate(dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s parameter %q, expected YYYY-MM-DD", name, dateStr)
	}
	return date, nil
}

func (h *PortfolioHandler) HandleGetCashBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		utils.SendJSONError(w, "currency is required", http.StatusBadRequest)
		return
	}
	date, err := getDateParam(r, "date")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	balance, err := h.balanceService.CalculateCashBalance(r.Context(), accountID, currency, date)
	if err != nil {
		logger.L.Error("Failed to calculate cash balance", "accountID", accountID, "currency", currency, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error calculating cash balance: %v", err), statusForError(err))
		return
	}
	utils.SendJSON(w, map[string]any{
		"account_id":   accountID,
		"currency":     currency,
		"date":         models.FormatDate(date),
		"cash_balance": balance,
	}, http.StatusOK)
}

func (h *PortfolioHandler) HandleGetCashSummary(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		utils.SendJSONError(w, "currency is required", http.StatusBadRequest)
		return
	}
	summary, err := h.balanceService.CashSummary(r.Context(), accountID, currency)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving cash summary: %v", err), statusForError(err))
		return
	}
	utils.SendJSON(w, summary, http.StatusOK)
}

func (h *PortfolioHandler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	date, err := getDateParam(r, "date")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	holdings, err := h.balanceService.CalculateHoldings(r.Context(), accountID, date)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving holdings: %v", err), statusForError(err))
		return
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}
	utils.SendJSON(w, holdings, http.StatusOK)
}

func (h *PortfolioHandler) HandleGetPortfolioHistory(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		utils.SendJSONError(w, "currency is required", http.StatusBadRequest)
		return
	}
	days, err := getDaysParam(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	history, err := h.snapshotService.History(r.Context(), accountID, currency, days)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving portfolio history: %v", err), statusForError(err))
		return
	}
	if history == nil {
		history = []models.PortfolioSnapshot{}
	}
	utils.SendJSON(w, history, http.StatusOK)
}

func (h *PortfolioHandler) HandleGetAggregateHistory(w http.ResponseWriter, r *http.Request) {
	days, err := getDaysParam(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	points, err := h.aggregateService.AggregateHistory(r.Context(), days)
	if err != nil {
		logger.L.Error("Failed to aggregate portfolio history", "days", days, "error", err)
		utils.SendJSONError(w, "Failed to retrieve aggregate history", http.StatusInternalServerError)
		return
	}
	if points == nil {
		points = []models.AggregatePoint{}
	}
	utils.SendJSON(w, points, http.StatusOK)
}

func (h *PortfolioHandler) HandleGetClosedPositions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	closed, err := h.reportingService.ClosedPositions(r.Context(), accountID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving closed positions: %v", err), statusForError(err))
		return
	}
	if closed == nil {
		closed = []models.ClosedPosition{}
	}
	utils.SendJSON(w, closed, http.StatusOK)
}

func (h *PortfolioHandler) HandleGetWinRate(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	stats, err := h.reportingService.WinRate(r.Context(), accountID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error computing win rate: %v", err), statusForError(err))
		return
	}
	utils.SendJSON(w, stats, http.StatusOK)
}
