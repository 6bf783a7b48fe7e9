package service

import (
	"bytes"
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

// TransferService performs immediate (single-phase) transfers: direct sends,
// content tips and platform rewards.
type TransferService struct {
	store      QueryStore
	dispatcher *Dispatcher
	audit      *AuditService
}

func NewTransferService(store QueryStore, dispatcher *Dispatcher) *TransferService {
	return &TransferService{
		store:      store,
		dispatcher: dispatcher,
		audit:      NewAuditService(store),
	}
}

type DirectTransferParams struct {
	SenderID     uuid.UUID
	RecipientID  uuid.UUID
	AmountMicros int64
	Type         string
	Description  string
}

// TransferDirect debits the sender and credits the recipient atomically.
// Insufficient funds abort before any row is written; no FAILED transaction
// is recorded for a rejected attempt.
func (s *TransferService) TransferDirect(ctx context.Context, arg DirectTransferParams) (*models.Transaction, error) {
	if arg.AmountMicros <= 0 {
		return nil, models.ErrInvalidAmount
	}
	if arg.Type == "" {
		arg.Type = domain.TxTypeP2PTransfer
	}

	var tx models.Transaction
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if _, err := qtx.GetUser(ctx, arg.RecipientID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrUserNotFound
			}
			return fmt.Errorf("load recipient: %w", err)
		}
		if _, err := ensureWallet(ctx, qtx, arg.RecipientID); err != nil {
			return err
		}

		// Lock both wallets in a deterministic order so that two
		// opposite-direction transfers cannot deadlock. A self transfer
		// locks the same row twice; FOR UPDATE is reentrant within one
		// transaction.
		first, second := arg.SenderID, arg.RecipientID
		if bytes.Compare(second[:], first[:]) < 0 {
			first, second = second, first
		}
		var sender models.Wallet
		for _, id := range []uuid.UUID{first, second} {
			w, err := qtx.GetWalletForUpdate(ctx, id)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return models.ErrWalletNotFound
				}
				return fmt.Errorf("lock wallet %s: %w", id, err)
			}
			if id == arg.SenderID {
				sender = w
			}
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
		if err := requireExactlyOne(rows, "debit sender"); err != nil {
			return err
		}
		rows, err = qtx.AdjustWalletBalance(ctx, repository.AdjustWalletBalanceParams{
			DeltaMicros: arg.AmountMicros,
			UserID:      arg.RecipientID,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "credit recipient"); err != nil {
			return err
		}

		tx = models.Transaction{
			ID:           uuid.New(),
			SenderID:     &arg.SenderID,
			RecipientID:  arg.RecipientID,
			AmountMicros: arg.AmountMicros,
			Type:         arg.Type,
			Status:       domain.TxStatusConfirmed,
			Description:  arg.Description,
		}
		if err := qtx.InsertTransaction(ctx, repository.InsertTransactionParams{
			ID:           tx.ID,
			SenderID:     tx.SenderID,
			RecipientID:  tx.RecipientID,
			AmountMicros: tx.AmountMicros,
			Type:         tx.Type,
			Status:       tx.Status,
			Description:  tx.Description,
		}); err != nil {
			return err
		}

		return s.audit.Write(ctx, qtx, "transaction", tx.ID, &arg.SenderID,
			"transferred", "", domain.TxStatusConfirmed, nil)
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementTransaction(tx.Type)
	s.dispatcher.DirectTransfer(ctx, tx, arg.Description)
	return &tx, nil
}

// TipContent sends a tip to the owner of a post or reel. The content ID is
// resolved as a post first, then as a reel; tipping your own content is
// rejected.
func (s *TransferService) TipContent(ctx context.Context, senderID uuid.UUID, contentID string, amountMicros int64, message string) (*models.Transaction, error) {
	if amountMicros <= 0 {
		return nil, models.ErrInvalidAmount
	}
	id, err := uuid.Parse(contentID)
	if err != nil {
		return nil, models.ErrContentNotFound
	}

	q := s.store.Queries()
	ownerID, err := q.GetPostOwner(ctx, id)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("resolve post: %w", err)
		}
		ownerID, err = q.GetReelOwner(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, models.ErrContentNotFound
			}
			return nil, fmt.Errorf("resolve reel: %w", err)
		}
	}
	if ownerID == senderID {
		return nil, models.ErrSelfTipNotAllowed
	}

	return s.TransferDirect(ctx, DirectTransferParams{
		SenderID:     senderID,
		RecipientID:  ownerID,
		AmountMicros: amountMicros,
		Type:         domain.TxTypeContentTip,
		Description:  message,
	})
}

// RewardUser mints a platform reward into the recipient's wallet. There is no
// sender; the transaction records new issuance.
func (s *TransferService) RewardUser(ctx context.Context, recipientID uuid.UUID, amountMicros int64, description string) (*models.Transaction, error) {
	if amountMicros <= 0 {
		return nil, models.ErrInvalidAmount
	}

	var tx models.Transaction
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if _, err := qtx.GetUser(ctx, recipientID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrUserNotFound
			}
			return fmt.Errorf("load recipient: %w", err)
		}
		if _, err := ensureWallet(ctx, qtx, recipientID); err != nil {
			return err
		}

		rows, err := qtx.AdjustWalletBalance(ctx, repository.AdjustWalletBalanceParams{
			DeltaMicros: amountMicros,
			UserID:      recipientID,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "credit reward"); err != nil {
			return err
		}

		tx = models.Transaction{
			ID:           uuid.New(),
			RecipientID:  recipientID,
			AmountMicros: amountMicros,
			Type:         domain.TxTypeRewardDistribution,
			Status:       domain.TxStatusConfirmed,
			Description:  description,
		}
		return qtx.InsertTransaction(ctx, repository.InsertTransactionParams{
			ID:           tx.ID,
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

	observability.IncrementTransaction(domain.TxTypeRewardDistribution)
	s.dispatcher.Rewarded(ctx, tx, description)
	return &tx, nil
}
