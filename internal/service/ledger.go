package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/maschat/masscoin-ledger/internal/repository"
)

// Ledger is the composition root for the wallet domain. Handlers and workers
// talk to it rather than to the individual services.
type Ledger struct {
	Wallets     *WalletService
	Transfers   *TransferService
	Requests    *TransferRequestService
	Withdrawals *WithdrawalService
	Stats       *StatsService

	store QueryStore
	audit *AuditService
}

func NewLedger(store QueryStore, queue Queue) *Ledger {
	dispatcher := NewDispatcher(store, queue)
	return &Ledger{
		Wallets:     NewWalletService(store),
		Transfers:   NewTransferService(store, dispatcher),
		Requests:    NewTransferRequestService(store, dispatcher),
		Withdrawals: NewWithdrawalService(store, dispatcher),
		Stats:       NewStatsService(store),
		store:       store,
		audit:       NewAuditService(store),
	}
}

// GetTransaction loads a single ledger record.
func (l *Ledger) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	tx, err := l.store.Queries().GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrTxNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &tx, nil
}

// ConfirmTransaction moves a PENDING ledger record to CONFIRMED. Used by the
// settlement callback for withdrawals; confirmed and failed records are
// immutable.
func (l *Ledger) ConfirmTransaction(ctx context.Context, id uuid.UUID) error {
	return l.finishTransaction(ctx, id, "CONFIRMED", "confirmed")
}

// FailTransaction moves a PENDING ledger record to FAILED.
func (l *Ledger) FailTransaction(ctx context.Context, id uuid.UUID) error {
	return l.finishTransaction(ctx, id, "FAILED", "failed")
}

func (l *Ledger) finishTransaction(ctx context.Context, id uuid.UUID, status, action string) error {
	return l.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		tx, err := qtx.GetTransaction(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrTxNotFound
			}
			return fmt.Errorf("load transaction: %w", err)
		}

		rows, err := qtx.UpdateTransactionStatus(ctx, repository.UpdateTransactionStatusParams{
			Status: status,
			ID:     id,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return models.ErrInvalidState
		}
		return l.audit.Write(ctx, qtx, "transaction", id, nil, action, tx.Status, status, nil)
	})
}
