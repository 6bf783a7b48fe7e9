package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/service"
	"github.com/shopspring/decimal"
)

type TransferRequestHandler struct {
	svc *service.TransferRequestService
}

func NewTransferRequestHandler(svc *service.TransferRequestService) *TransferRequestHandler {
	return &TransferRequestHandler{svc: svc}
}

// Create opens a transfer request and escrows the amount from the caller.
func (h *TransferRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req struct {
		RecipientID string          `json:"recipient_id"`
		Amount      decimal.Decimal `json:"amount"`
		Message     string          `json:"message"`
		ContextType string          `json:"context_type"`
		ContextID   *string         `json:"context_id"`
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

	created, err := h.svc.Create(r.Context(), service.CreateTransferRequestParams{
		SenderID:     actorID,
		RecipientID:  recipientID,
		AmountMicros: micros,
		Message:      req.Message,
		ContextType:  req.ContextType,
		ContextID:    req.ContextID,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, created)
}

// Approve accepts a pending request addressed to the caller.
func (h *TransferRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid request id")
		return
	}

	tx, err := h.svc.Approve(r.Context(), actorID, requestID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

// Reject declines a pending request addressed to the caller.
func (h *TransferRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid request id")
		return
	}

	if err := h.svc.Reject(r.Context(), actorID, requestID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// ListPending returns the caller's inbound pending requests.
func (h *TransferRequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	requests, err := h.svc.ListPending(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// CountPending returns the caller's inbound pending request count, for
// badges.
func (h *TransferRequestHandler) CountPending(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	count, err := h.svc.CountPending(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]int64{"count": count})
}
