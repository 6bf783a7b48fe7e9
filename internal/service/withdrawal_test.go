package service

import (
	"context"
	"testing"

	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestWithdrawal(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	wd, err := ledger.Withdrawals.RequestWithdrawal(ctx, RequestWithdrawalParams{
		UserID:       amara.ID,
		AmountMicros: domain.FromCoins(200),
		Method:       "bank_transfer",
		Destination:  "GB33BUKB20201555555555",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusPending, wd.Status)

	assert.Equal(t, domain.FromCoins(800), walletBalance(t, db, amara.ID))

	// The ledger keeps a pending withdrawal transaction naming the method.
	var status, description string
	err = db.QueryRow(ctx, `
		SELECT status, description FROM transactions WHERE type = 'WITHDRAWAL' AND recipient_id = $1`,
		amara.ID).Scan(&status, &description)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, status)
	assert.Equal(t, "Withdrawal request via bank_transfer", description)

	list, err := ledger.Withdrawals.ListWithdrawals(ctx, amara.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, wd.ID, list[0].ID)
}

func TestRequestWithdrawalValidatesDetails(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	_, err = ledger.Withdrawals.RequestWithdrawal(ctx, RequestWithdrawalParams{
		UserID:       amara.ID,
		AmountMicros: domain.FromCoins(10),
		Destination:  "GB33BUKB20201555555555",
	})
	assert.ErrorIs(t, err, models.ErrInvalidWithdrawal)

	_, err = ledger.Withdrawals.RequestWithdrawal(ctx, RequestWithdrawalParams{
		UserID:       amara.ID,
		AmountMicros: domain.FromCoins(10),
		Method:       "paypal",
	})
	assert.ErrorIs(t, err, models.ErrInvalidWithdrawal)
	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, amara.ID))
}

func TestRequestWithdrawalInsufficientFunds(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	_, err = ledger.Withdrawals.RequestWithdrawal(ctx, RequestWithdrawalParams{
		UserID:       amara.ID,
		AmountMicros: domain.FromCoins(1001),
		Method:       "bank_transfer",
		Destination:  "GB33BUKB20201555555555",
	})
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, amara.ID))
}

func TestFinishWithdrawalTransaction(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	_, err = ledger.Withdrawals.RequestWithdrawal(ctx, RequestWithdrawalParams{
		UserID:       amara.ID,
		AmountMicros: domain.FromCoins(200),
		Method:       "paypal",
		Destination:  "amara@example.com",
	})
	require.NoError(t, err)

	var txID string
	err = db.QueryRow(ctx, `SELECT id FROM transactions WHERE type = 'WITHDRAWAL'`).Scan(&txID)
	require.NoError(t, err)

	tx, err := ledger.GetTransaction(ctx, mustUUID(t, txID))
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, tx.Status)

	require.NoError(t, ledger.ConfirmTransaction(ctx, tx.ID))

	tx, err = ledger.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusConfirmed, tx.Status)

	// Terminal records are immutable.
	err = ledger.FailTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	err = ledger.ConfirmTransaction(ctx, newUUID(t))
	assert.ErrorIs(t, err, models.ErrTxNotFound)
}
