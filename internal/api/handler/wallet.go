package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/maschat/masscoin-ledger/internal/service"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	svc *service.WalletService
}

func NewWalletHandler(svc *service.WalletService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

type walletResponse struct {
	models.Wallet
	Balance string `json:"balance"`
	Staked  string `json:"staked"`
}

func newWalletResponse(w models.Wallet) walletResponse {
	return walletResponse{
		Wallet:  w,
		Balance: domain.ToDecimal(w.BalanceMicros).StringFixed(2),
		Staked:  domain.ToDecimal(w.StakedMicros).StringFixed(2),
	}
}

// GetWallet returns the caller's wallet, creating it with the signup grant on
// first access.
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	wallet, err := h.svc.GetOrCreateWallet(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, newWalletResponse(*wallet))
}

// UpdateAddress sets a new wallet address for the caller.
func (h *WalletHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req struct {
		WalletAddress string `json:"wallet_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	wallet, err := h.svc.UpdateWalletAddress(r.Context(), actorID, req.WalletAddress)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, newWalletResponse(*wallet))
}

// Stake moves part of the caller's balance into the staked bucket.
func (h *WalletHandler) Stake(w http.ResponseWriter, r *http.Request) {
	h.moveStake(w, r, h.svc.Stake)
}

// Unstake moves staked funds back to the spendable balance.
func (h *WalletHandler) Unstake(w http.ResponseWriter, r *http.Request) {
	h.moveStake(w, r, h.svc.Unstake)
}

func (h *WalletHandler) moveStake(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, int64) (*models.Wallet, error)) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
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

	wallet, err := op(r.Context(), actorID, micros)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, newWalletResponse(*wallet))
}

func parseAmount(raw decimal.Decimal) (int64, error) {
	micros := domain.FromDecimal(raw)
	if micros <= 0 {
		return 0, models.ErrInvalidAmount
	}
	return micros, nil
}
