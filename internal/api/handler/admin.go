package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/service"
)

// AdminHandler groups operator-only endpoints: settlement callbacks for
// withdrawal transactions and on-demand reconciliation.
type AdminHandler struct {
	ledger         *service.Ledger
	reconciliation *service.ReconciliationService
}

func NewAdminHandler(ledger *service.Ledger, reconciliation *service.ReconciliationService) *AdminHandler {
	return &AdminHandler{ledger: ledger, reconciliation: reconciliation}
}

// ConfirmTransaction marks a pending ledger record settled.
func (h *AdminHandler) ConfirmTransaction(w http.ResponseWriter, r *http.Request) {
	h.finish(w, r, h.ledger.ConfirmTransaction)
}

// FailTransaction marks a pending ledger record failed.
func (h *AdminHandler) FailTransaction(w http.ResponseWriter, r *http.Request) {
	h.finish(w, r, h.ledger.FailTransaction)
}

func (h *AdminHandler) finish(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) error) {
	txID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid transaction id")
		return
	}
	if err := op(r.Context(), txID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Reconcile runs a conservation check and returns the report.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliation.Run(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, report)
}
