package handler

import (
	"encoding/json"
	"net/http"

	"github.com/maschat/masscoin-ledger/internal/service"
	"github.com/shopspring/decimal"
)

type WithdrawalHandler struct {
	svc *service.WithdrawalService
}

func NewWithdrawalHandler(svc *service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{svc: svc}
}

// Request debits the caller's wallet and records a pending withdrawal.
func (h *WithdrawalHandler) Request(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		Method      string          `json:"method"`
		Destination string          `json:"destination"`
		Metadata    json.RawMessage `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	micros, err := parseAmount(req.Amount)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	wd, err := h.svc.RequestWithdrawal(r.Context(), service.RequestWithdrawalParams{
		UserID:       actorID,
		AmountMicros: micros,
		Method:       req.Method,
		Destination:  req.Destination,
		Metadata:     req.Metadata,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, wd)
}

// List returns the caller's withdrawal history.
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	withdrawals, err := h.svc.ListWithdrawals(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"withdrawals": withdrawals})
}
