package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/username/snapfolio/backend/src/models"
	"github.com/username/snapfolio/backend/src/services"
	"github.com/username/snapfolio/backend/src/utils"
)

// MarketHandler exposes the price-cache health check and the market-index
// ingestion endpoint the external backfill tooling writes through.
type MarketHandler struct {
	prices  services.PriceReader
	indices services.MarketIndexStore
}

func NewMarketHandler(prices services.PriceReader, indices services.MarketIndexStore) *MarketHandler {
	return &MarketHandler{prices: prices, indices: indices}
}

func (h *MarketHandler) HandleGetPriceCacheStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.prices.CacheStatus(r.Context())
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving price cache status: %v", err), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, status, http.StatusOK)
}

type marketIndexRequest struct {
	Date       string           `json:"snapshot_date"`
	SPXClose   *decimal.Decimal `json:"spx_close,omitempty"`
	NDXClose   *decimal.Decimal `json:"ndx_close,omitempty"`
	KOSPIClose *decimal.Decimal `json:"kospi_close,omitempty"`
	USDKRWRate *decimal.Decimal `json:"usd_krw_rate,omitempty"`
}

func (h *MarketHandler) HandleUpsertMarketIndex(w http.ResponseWriter, r *http.Request) {
	var req marketIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("invalid snapshot_date %q, expected YYYY-MM-DD", req.Date), http.StatusBadRequest)
		return
	}

	snap := &models.MarketIndexSnapshot{
		SnapshotDate: date,
		SPXClose:     req.SPXClose,
		NDXClose:     req.NDXClose,
		KOSPIClose:   req.KOSPIClose,
		USDKRWRate:   req.USDKRWRate,
	}
	if err := h.indices.UpsertDay(r.Context(), snap); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error upserting market index snapshot: %v", err), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
