package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/snapfolio/backend/src/models"
	"github.com/username/snapfolio/backend/src/services"
	"github.com/username/snapfolio/backend/src/utils"
)

type AccountHandler struct {
	accounts services.AccountDirectory
}

func NewAccountHandler(accounts services.AccountDirectory) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListActiveAccounts(r.Context())
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error listing accounts: %v", err), http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	utils.SendJSON(w, accounts, http.StatusOK)
}

func (h *AccountHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	account, err := h.accounts.GetAccount(r.Context(), accountID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving account: %v", err), statusForError(err))
		return
	}
	utils.SendJSON(w, account, http.StatusOK)
}

func (h *AccountHandler) HandleGetAccountByNumber(w http.ResponseWriter, r *http.Request) {
	numberStr := chi.URLParam(r, "accountNumber")
	number, err := strconv.Atoi(numberStr)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("invalid account number %q", numberStr), http.StatusBadRequest)
		return
	}
	account, err := h.accounts.GetAccountByNumber(r.Context(), number)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving account: %v", err), statusForError(err))
		return
	}
	utils.SendJSON(w, account, http.StatusOK)
}
