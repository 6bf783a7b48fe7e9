package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/maschat/masscoin-ledger/internal/observability"
	"github.com/maschat/masscoin-ledger/internal/repository"
)

// WithdrawalService records withdrawal requests. Settlement happens outside
// this system; requests stay PENDING here.
type WithdrawalService struct {
	store      QueryStore
	dispatcher *Dispatcher
	audit      *AuditService
}

func NewWithdrawalService(store QueryStore, dispatcher *Dispatcher) *WithdrawalService {
	return &WithdrawalService{
		store:      store,
		dispatcher: dispatcher,
		audit:      NewAuditService(store),
	}
}

type RequestWithdrawalParams struct {
	UserID       uuid.UUID
	AmountMicros int64
	Method       string
	Destination  string
	Metadata     []byte
}

// RequestWithdrawal debits the wallet and records a PENDING withdrawal with a
// matching PENDING ledger transaction.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, arg RequestWithdrawalParams) (*models.WithdrawalRequest, error) {
	if arg.AmountMicros <= 0 {
		return nil, models.ErrInvalidAmount
	}
	if arg.Method == "" || arg.Destination == "" {
		return nil, models.ErrInvalidWithdrawal
	}

	var wd models.WithdrawalRequest
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		wallet, err := qtx.GetWalletForUpdate(ctx, arg.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrWalletNotFound
			}
			return fmt.Errorf("lock wallet: %w", err)
		}
		if wallet.BalanceMicros < arg.AmountMicros {
			return models.ErrInsufficientFunds
		}

		rows, err := qtx.AdjustWalletBalance(ctx, repository.AdjustWalletBalanceParams{
			DeltaMicros: -arg.AmountMicros,
			UserID:      arg.UserID,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "debit withdrawal"); err != nil {
			return err
		}

		wd = models.WithdrawalRequest{
			ID:           uuid.New(),
			UserID:       arg.UserID,
			AmountMicros: arg.AmountMicros,
			Method:       arg.Method,
			Destination:  arg.Destination,
			Metadata:     arg.Metadata,
			Status:       domain.WithdrawalStatusPending,
		}
		if err := qtx.InsertWithdrawal(ctx, repository.InsertWithdrawalParams{
			ID:           wd.ID,
			UserID:       wd.UserID,
			AmountMicros: wd.AmountMicros,
			Method:       wd.Method,
			Destination:  wd.Destination,
			Metadata:     wd.Metadata,
		}); err != nil {
			return err
		}

		if err := qtx.InsertTransaction(ctx, repository.InsertTransactionParams{
			ID:           uuid.New(),
			SenderID:     &arg.UserID,
			RecipientID:  arg.UserID,
			AmountMicros: arg.AmountMicros,
			Type:         domain.TxTypeWithdrawal,
			Status:       domain.TxStatusPending,
			Description:  fmt.Sprintf("Withdrawal request via %s", arg.Method),
		}); err != nil {
			return err
		}

		return s.audit.Write(ctx, qtx, "withdrawal", wd.ID, &arg.UserID,
			"requested", "", domain.WithdrawalStatusPending, nil)
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementTransaction(domain.TxTypeWithdrawal)
	s.dispatcher.WithdrawalRequested(ctx, wd)
	return &wd, nil
}

// ListWithdrawals returns the user's withdrawal requests, newest first.
func (s *WithdrawalService) ListWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.WithdrawalRequest, error) {
	return s.store.Queries().ListWithdrawalsByUser(ctx, userID)
}
