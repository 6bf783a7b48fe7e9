package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/maschat/masscoin-ledger/internal/observability"
	"github.com/maschat/masscoin-ledger/internal/repository"
	"go.uber.org/zap"
)

// TransferRequestService owns the two-phase escrow lifecycle:
// PENDING -> APPROVED / REJECTED / EXPIRED.
type TransferRequestService struct {
	store      QueryStore
	dispatcher *Dispatcher
	audit      *AuditService
	ttl        time.Duration
	now        func() time.Time
}

const DefaultRequestTTL = time.Hour

func NewTransferRequestService(store QueryStore, dispatcher *Dispatcher) *TransferRequestService {
	return &TransferRequestService{
		store:      store,
		dispatcher: dispatcher,
		audit:      NewAuditService(store),
		ttl:        DefaultRequestTTL,
		now:        time.Now,
	}
}

// WithTTL overrides the request expiry window.
func (s *TransferRequestService) WithTTL(ttl time.Duration) *TransferRequestService {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// WithClock overrides the time source. Tests use this to cross the expiry
// boundary without sleeping.
func (s *TransferRequestService) WithClock(now func() time.Time) *TransferRequestService {
	if now != nil {
		s.now = now
	}
	return s
}

type CreateTransferRequestParams struct {
	SenderID     uuid.UUID
	RecipientID  uuid.UUID
	AmountMicros int64
	Message      string
	ContextType  string
	ContextID    *string
}

// Create escrows the amount against a new PENDING request. The debit and the
// request insert commit together; the partial unique index turns a concurrent
// duplicate into ErrDuplicateRequest and rolls the debit back with it.
func (s *TransferRequestService) Create(ctx context.Context, arg CreateTransferRequestParams) (*models.TransferRequest, error) {
	if arg.AmountMicros <= 0 {
		return nil, models.ErrInvalidAmount
	}
	contextType := arg.ContextType
	if contextType == "" {
		contextType = domain.ContextTypeNone
	}

	requestID := uuid.New()
	expiresAt := s.now().Add(s.ttl)
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if _, err := qtx.GetUser(ctx, arg.RecipientID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrUserNotFound
			}
			return fmt.Errorf("load recipient: %w", err)
		}

		sender, err := qtx.GetWalletForUpdate(ctx, arg.SenderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrWalletNotFound
			}
			return fmt.Errorf("lock sender wallet: %w", err)
		}
		if sender.BalanceMicros < arg.AmountMicros {
			return models.ErrInsufficientFunds
		}

		rows, err := qtx.AdjustWalletBalance(ctx, repository.AdjustWalletBalanceParams{
			DeltaMicros: -arg.AmountMicros,
			UserID:      arg.SenderID,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "escrow sender debit"); err != nil {
			return err
		}

		if err := qtx.InsertTransferRequest(ctx, repository.InsertTransferRequestParams{
			ID:           requestID,
			SenderID:     arg.SenderID,
			RecipientID:  arg.RecipientID,
			AmountMicros: arg.AmountMicros,
			Message:      arg.Message,
			ContextType:  contextType,
			ContextID:    arg.ContextID,
			ExpiresAt:    expiresAt,
		}); err != nil {
			if isUniqueViolation(err) {
				return models.ErrDuplicateRequest
			}
			return err
		}

		return s.audit.Write(ctx, qtx, "transfer_request", requestID, &arg.SenderID,
			"created", "", domain.RequestStatusPending, nil)
	})
	if err != nil {
		return nil, err
	}

	req, err := s.store.Queries().GetTransferRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load created request: %w", err)
	}
	s.dispatcher.TransferRequestCreated(ctx, req)
	return &req, nil
}

// Approve moves the escrowed amount to the recipient. Only the recipient may
// approve; a request past its expiry is lazily expired (refunding the sender)
// and the caller gets ErrRequestExpired.
func (s *TransferRequestService) Approve(ctx context.Context, recipientID, requestID uuid.UUID) (*models.Transaction, error) {
	var (
		req     models.TransferRequest
		tx      models.Transaction
		expired bool
	)
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var err error
		req, err = s.lockPendingRequest(ctx, qtx, recipientID, requestID)
		if err != nil {
			return err
		}

		if !s.now().Before(req.ExpiresAt) {
			if err := s.expireLocked(ctx, qtx, req); err != nil {
				return err
			}
			expired = true
			return nil
		}

		if err := transitionRequestState(ctx, qtx, s.audit, req, domain.RequestStatusApproved, "approved"); err != nil {
			return err
		}

		if _, err := ensureWallet(ctx, qtx, req.RecipientID); err != nil {
			return err
		}
		rows, err := qtx.AdjustWalletBalance(ctx, repository.AdjustWalletBalanceParams{
			DeltaMicros: req.AmountMicros,
			UserID:      req.RecipientID,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "credit recipient"); err != nil {
			return err
		}

		tx = models.Transaction{
			ID:           uuid.New(),
			SenderID:     &req.SenderID,
			RecipientID:  req.RecipientID,
			AmountMicros: req.AmountMicros,
			Type:         domain.TxTypeP2PTransfer,
			Status:       domain.TxStatusConfirmed,
			Description:  req.Message,
		}
		return qtx.InsertTransaction(ctx, repository.InsertTransactionParams{
			ID:           tx.ID,
			SenderID:     tx.SenderID,
			RecipientID:  tx.RecipientID,
			AmountMicros: tx.AmountMicros,
			Type:         tx.Type,
			Status:       tx.Status,
			Description:  tx.Description,
		})
	})
	if err != nil {
		return nil, err
	}

	if expired {
		observability.IncrementRequestResolution("expired")
		s.dispatcher.TransferRequestExpired(ctx, req)
		return nil, models.ErrRequestExpired
	}

	observability.IncrementRequestResolution("approved")
	observability.IncrementTransaction(domain.TxTypeP2PTransfer)
	s.dispatcher.TransferRequestApproved(ctx, req, tx)
	return &tx, nil
}

// Reject refunds the escrowed amount to the sender.
func (s *TransferRequestService) Reject(ctx context.Context, recipientID, requestID uuid.UUID) error {
	var (
		req     models.TransferRequest
		expired bool
	)
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var err error
		req, err = s.lockPendingRequest(ctx, qtx, recipientID, requestID)
		if err != nil {
			return err
		}

		if !s.now().Before(req.ExpiresAt) {
			if err := s.expireLocked(ctx, qtx, req); err != nil {
				return err
			}
			expired = true
			return nil
		}

		if err := transitionRequestState(ctx, qtx, s.audit, req, domain.RequestStatusRejected, "rejected"); err != nil {
			return err
		}
		return s.refundSender(ctx, qtx, req)
	})
	if err != nil {
		return err
	}

	if expired {
		observability.IncrementRequestResolution("expired")
		s.dispatcher.TransferRequestExpired(ctx, req)
		return models.ErrRequestExpired
	}

	observability.IncrementRequestResolution("rejected")
	s.dispatcher.TransferRequestRejected(ctx, req)
	return nil
}

// ListPending returns PENDING requests addressed to the recipient, newest
// first.
func (s *TransferRequestService) ListPending(ctx context.Context, recipientID uuid.UUID) ([]models.TransferRequest, error) {
	return s.store.Queries().ListPendingRequestsForRecipient(ctx, recipientID)
}

func (s *TransferRequestService) CountPending(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return s.store.Queries().CountPendingRequestsForRecipient(ctx, recipientID)
}

// ExpireStale resolves every PENDING request past its expiry. Each request is
// processed in its own transaction so one failure cannot block the rest.
// Callable on demand as well as from the sweeper.
func (s *TransferRequestService) ExpireStale(ctx context.Context, batchSize int32) (int, error) {
	stale, err := s.store.Queries().ListExpiredPendingRequests(ctx, repository.ListExpiredPendingRequestsParams{
		Now:   s.now(),
		Limit: batchSize,
	})
	if err != nil {
		return 0, fmt.Errorf("list stale requests: %w", err)
	}

	expired := 0
	for _, candidate := range stale {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		won, err := s.expireOne(ctx, candidate.ID)
		if err != nil {
			zap.L().Error("expire transfer request failed",
				zap.String("request_id", candidate.ID.String()), zap.Error(err))
			continue
		}
		if won {
			expired++
			observability.IncrementRequestResolution("expired")
			s.dispatcher.TransferRequestExpired(ctx, candidate)
		}
	}
	return expired, nil
}

// expireOne re-checks the request under its row lock and performs the
// expire-then-refund transition. Returns false when another path (a late
// approve/reject or a concurrent sweep) already resolved the request.
func (s *TransferRequestService) expireOne(ctx context.Context, requestID uuid.UUID) (bool, error) {
	won := false
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		req, err := qtx.GetTransferRequestForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("lock request: %w", err)
		}
		if req.Status != domain.RequestStatusPending || s.now().Before(req.ExpiresAt) {
			return nil
		}

		if err := s.expireLocked(ctx, qtx, req); err != nil {
			return err
		}
		won = true
		return nil
	})
	return won, err
}

// expireLocked applies the EXPIRED transition plus the exactly-once refund.
// Caller must hold the request's row lock with status still PENDING.
func (s *TransferRequestService) expireLocked(ctx context.Context, qtx *repository.Queries, req models.TransferRequest) error {
	if err := transitionRequestState(ctx, qtx, s.audit, req, domain.RequestStatusExpired, "expired"); err != nil {
		return err
	}
	return s.refundSender(ctx, qtx, req)
}

func (s *TransferRequestService) refundSender(ctx context.Context, qtx *repository.Queries, req models.TransferRequest) error {
	rows, err := qtx.AdjustWalletBalance(ctx, repository.AdjustWalletBalanceParams{
		DeltaMicros: req.AmountMicros,
		UserID:      req.SenderID,
	})
	if err != nil {
		return err
	}
	return requireExactlyOne(rows, "refund sender")
}

func (s *TransferRequestService) lockPendingRequest(ctx context.Context, qtx *repository.Queries, recipientID, requestID uuid.UUID) (models.TransferRequest, error) {
	req, err := qtx.GetTransferRequestForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return req, models.ErrRequestNotFound
		}
		return req, fmt.Errorf("lock request: %w", err)
	}
	if req.RecipientID != recipientID {
		return req, models.ErrUnauthorized
	}
	if req.Status != domain.RequestStatusPending {
		return req, models.ErrInvalidState
	}
	return req, nil
}
