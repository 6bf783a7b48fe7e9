package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/api/middleware"
	"github.com/maschat/masscoin-ledger/internal/service"
	"github.com/shopspring/decimal"
)

type TransferHandler struct {
	svc *service.TransferService
}

func NewTransferHandler(svc *service.TransferService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// SendDirect performs an immediate transfer from the caller to another user.
func (h *TransferHandler) SendDirect(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req struct {
		RecipientID string          `json:"recipient_id"`
		Amount      decimal.Decimal `json:"amount"`
		Message     string          `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-recipient", "Invalid recipient_id")
		return
	}
	micros, err := parseAmount(req.Amount)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	tx, err := h.svc.TransferDirect(r.Context(), service.DirectTransferParams{
		SenderID:     actorID,
		RecipientID:  recipientID,
		AmountMicros: micros,
		Description:  req.Message,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, tx)
}

// Tip sends a tip to the owner of a post or reel.
func (h *TransferHandler) Tip(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req struct {
		ContentID string          `json:"content_id"`
		Amount    decimal.Decimal `json:"amount"`
		Message   string          `json:"message"`
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

	tx, err := h.svc.TipContent(r.Context(), actorID, req.ContentID, micros, req.Message)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, tx)
}

// Reward mints a platform reward into a user's wallet. Admin only; the route
// is guarded by RequireRole.
func (h *TransferHandler) Reward(w http.ResponseWriter, r *http.Request) {
	if middleware.UserIDFromContext(r.Context()) == "" {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", "missing user in auth context")
		return
	}

	var req struct {
		RecipientID string          `json:"recipient_id"`
		Amount      decimal.Decimal `json:"amount"`
		Reason      string          `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-recipient", "Invalid recipient_id")
		return
	}
	micros, err := parseAmount(req.Amount)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	tx, err := h.svc.RewardUser(r.Context(), recipientID, micros, req.Reason)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, tx)
}
