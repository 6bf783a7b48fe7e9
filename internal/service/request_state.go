package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/maschat/masscoin-ledger/internal/repository"
)

// PENDING is the only non-terminal state; APPROVED, REJECTED and EXPIRED are
// immutable once reached.
var requestTransitions = map[string]map[string]struct{}{
	domain.RequestStatusPending: {
		domain.RequestStatusApproved: {},
		domain.RequestStatusRejected: {},
		domain.RequestStatusExpired:  {},
	},
	domain.RequestStatusApproved: {},
	domain.RequestStatusRejected: {},
	domain.RequestStatusExpired:  {},
}

func normalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

func canTransitionRequest(current, next string) bool {
	nextStates, ok := requestTransitions[normalizeState(current)]
	if !ok {
		return false
	}
	_, ok = nextStates[normalizeState(next)]
	return ok
}

// transitionRequestState performs the compare-and-set from PENDING to a
// terminal state and records the transition in the audit trail. The caller
// must hold the request's row lock; a zero row count means another path
// already resolved the request.
func transitionRequestState(ctx context.Context, qtx *repository.Queries, audit *AuditService, req models.TransferRequest, nextState, action string) error {
	if !canTransitionRequest(req.Status, nextState) {
		return models.ErrInvalidState
	}

	rows, err := qtx.ResolveTransferRequest(ctx, repository.ResolveTransferRequestParams{
		Status: nextState,
		ID:     req.ID,
	})
	if err != nil {
		return fmt.Errorf("resolve request state: %w", err)
	}
	if err := requireExactlyOne(rows, "resolve request state"); err != nil {
		return err
	}

	return audit.Write(ctx, qtx, "transfer_request", req.ID, nil, action, req.Status, nextState, nil)
}
