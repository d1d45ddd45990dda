package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/logger"
	"github.com/username/snapfolio/backend/src/models"
	"github.com/username/snapfolio/backend/src/services"
	"github.com/username/snapfolio/backend/src/utils"
)

type RecalculationHandler struct {
	recalcService   services.RecalculationService
	snapshotService services.SnapshotService
}

func NewRecalculationHandler(recalcService services.RecalculationService, snapshotService services.SnapshotService) *RecalculationHandler {
	return &RecalculationHandler{
		recalcService:   recalcService,
		snapshotService: snapshotService,
	}
}

type recalculateRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"`   // defaults to today
	AccountID string `json:"account_id,omitempty"` // defaults to all active accounts
}

func (h *RecalculationHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	var req recalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("invalid start_date %q, expected YYYY-MM-DD", req.StartDate), http.StatusBadRequest)
		return
	}
	var end time.Time
	if req.EndDate != "" {
		if end, err = models.ParseDate(req.EndDate); err != nil {
			utils.SendJSONError(w, fmt.Sprintf("invalid end_date %q, expected YYYY-MM-DD", req.EndDate), http.StatusBadRequest)
			return
		}
	}

	logger.L.Info("Handling recalculation request",
		"start", req.StartDate, "end", req.EndDate, "accountID", req.AccountID)

	summary, err := h.recalcService.Recalculate(r.Context(), start, end, req.AccountID)
	if err != nil {
		logger.L.Error("Recalculation failed", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Recalculation failed: %v", err), statusForError(err))
		return
	}
	utils.SendJSON(w, summary, http.StatusOK)
}

type recalculateDayRequest struct {
	Date string `json:"date"` // defaults to today
}

func (h *RecalculationHandler) HandleRecalculateDay(w http.ResponseWriter, r *http.Request) {
	var req recalculateDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	date := models.DateOnly(time.Now().UTC())
	if req.Date != "" {
		var err error
		if date, err = models.ParseDate(req.Date); err != nil {
			utils.SendJSONError(w, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.Date), http.StatusBadRequest)
			return
		}
	}

	results, err := h.recalcService.RecalculateDay(r.Context(), date)
	if err != nil {
		logger.L.Error("Single-day recalculation failed", "date", models.FormatDate(date), "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Recalculation failed: %v", err), statusForError(err))
		return
	}
	utils.SendJSON(w, results, http.StatusOK)
}

type captureSnapshotRequest struct {
	AccountID    string           `json:"account_id"`
	Date         string           `json:"date"`
	Currency     string           `json:"currency"`
	StockValue   decimal.Decimal  `json:"stock_value"`
	CashBalance  decimal.Decimal  `json:"cash_balance"`
	Baseline     *decimal.Decimal `json:"baseline,omitempty"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`
}

func (h *RecalculationHandler) HandleCaptureSnapshot(w http.ResponseWriter, r *http.Request) {
	var req captureSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccountID == "" || req.Currency == "" {
		utils.SendJSONError(w, "account_id and currency are required", http.StatusBadRequest)
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.Date), http.StatusBadRequest)
		return
	}

	snapshotID, err := h.snapshotService.Capture(r.Context(), services.CaptureInput{
		AccountID:    req.AccountID,
		Date:         date,
		Currency:     req.Currency,
		StockValue:   req.StockValue,
		CashBalance:  req.CashBalance,
		Baseline:     req.Baseline,
		ExchangeRate: req.ExchangeRate,
	})
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error capturing snapshot: %v", err), statusForError(err))
		return
	}
	utils.SendJSON(w, map[string]string{"snapshot_id": snapshotID}, http.StatusOK)
}
