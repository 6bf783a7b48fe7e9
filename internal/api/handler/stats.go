package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/service"
)

type StatsHandler struct {
	svc    *service.StatsService
	ledger *service.Ledger
}

func NewStatsHandler(ledger *service.Ledger) *StatsHandler {
	return &StatsHandler{svc: ledger.Stats, ledger: ledger}
}

// ListTransactions returns one page of the caller's history.
func (h *StatsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	page := queryInt32(r, "page", 0)
	size := queryInt32(r, "size", 0)
	result, err := h.svc.UserTransactions(r.Context(), actorID, page, size)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// GetTransaction returns a single ledger record the caller participates in.
func (h *StatsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	txID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid transaction id")
		return
	}

	tx, err := h.ledger.GetTransaction(r.Context(), txID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	participant := tx.RecipientID == actorID || (tx.SenderID != nil && *tx.SenderID == actorID)
	if !participant && !isAdmin {
		RespondError(w, r, http.StatusForbidden, "wallet/forbidden", "not a participant in this transaction")
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

// UserStats returns the caller's aggregate activity.
func (h *StatsHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	stats, err := h.svc.UserStats(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, stats)
}

func queryInt32(r *http.Request, key string, fallback int32) int32 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return int32(v)
}
