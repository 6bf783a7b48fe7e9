package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/maschat/masscoin-ledger/internal/events"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferDirect(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, queue, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	bayo := createTestUser(t, store, "bayo")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	tx, err := ledger.Transfers.TransferDirect(ctx, DirectTransferParams{
		SenderID:     amara.ID,
		RecipientID:  bayo.ID,
		AmountMicros: domain.FromCoins(250),
		Description:  "lunch money",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypeP2PTransfer, tx.Type)
	assert.Equal(t, domain.TxStatusConfirmed, tx.Status)

	// Bayo's wallet was created lazily with the grant, then credited.
	assert.Equal(t, domain.FromCoins(750), walletBalance(t, db, amara.ID))
	assert.Equal(t, domain.FromCoins(1250), walletBalance(t, db, bayo.ID))

	// Both parties are notified and the transfer lands in chat.
	assert.Len(t, queue.notificationsOfType(events.NotificationReceived), 1)
	assert.Len(t, queue.notificationsOfType(events.NotificationSent), 1)
	assert.Equal(t, 1, queue.countByQueue(events.ChatQueue))
}

func TestSelfDirectTransferIsNetZero(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	// Sending to yourself is permitted on the direct path; only tipping
	// rejects it. The books record a confirmed transfer and the balance
	// nets to zero.
	tx, err := ledger.Transfers.TransferDirect(ctx, DirectTransferParams{
		SenderID:     amara.ID,
		RecipientID:  amara.ID,
		AmountMicros: domain.FromCoins(10),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusConfirmed, tx.Status)
	assert.Equal(t, domain.TxTypeP2PTransfer, tx.Type)
	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, amara.ID))

	// Balance still bounds the attempt.
	_, err = ledger.Transfers.TransferDirect(ctx, DirectTransferParams{
		SenderID:     amara.ID,
		RecipientID:  amara.ID,
		AmountMicros: domain.FromCoins(1001),
	})
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
}

func TestTransferSucceedsWhenQueueDown(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, queue, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	bayo := createTestUser(t, store, "bayo")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	// A side-effect outage must never fail a committed mutation.
	queue.fail = true
	tx, err := ledger.Transfers.TransferDirect(ctx, DirectTransferParams{
		SenderID:     amara.ID,
		RecipientID:  bayo.ID,
		AmountMicros: domain.FromCoins(100),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusConfirmed, tx.Status)
	assert.Equal(t, domain.FromCoins(900), walletBalance(t, db, amara.ID))
}

func TestTransferDirectInsufficientFundsLeavesNoRecord(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, queue, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	bayo := createTestUser(t, store, "bayo")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	_, err = ledger.Transfers.TransferDirect(ctx, DirectTransferParams{
		SenderID:     amara.ID,
		RecipientID:  bayo.ID,
		AmountMicros: domain.FromCoins(1001),
	})
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	// No transfer transaction exists; balances are untouched.
	var count int
	err = db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE type = 'P2P_TRANSFER'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, amara.ID))
	assert.Equal(t, 0, queue.countByQueue(events.ChatQueue))
}

func TestTransferDirectUnknownRecipient(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	_, err = ledger.Transfers.TransferDirect(ctx, DirectTransferParams{
		SenderID:     amara.ID,
		RecipientID:  uuid.New(),
		AmountMicros: domain.FromCoins(10),
	})
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestTransferDeadlock(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	bayo := createTestUser(t, store, "bayo")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)
	_, err = ledger.Wallets.GetOrCreateWallet(ctx, bayo.ID)
	require.NoError(t, err)

	// Opposite-direction transfers must not deadlock; the sorted lock order
	// makes them serialize.
	n := 10
	amount := domain.FromCoins(10)
	errs := make(chan error, n*2)
	for i := 0; i < n; i++ {
		go func() {
			_, err := ledger.Transfers.TransferDirect(ctx, DirectTransferParams{
				SenderID: amara.ID, RecipientID: bayo.ID, AmountMicros: amount,
			})
			errs <- err
		}()
		go func() {
			_, err := ledger.Transfers.TransferDirect(ctx, DirectTransferParams{
				SenderID: bayo.ID, RecipientID: amara.ID, AmountMicros: amount,
			})
			errs <- err
		}()
	}
	for i := 0; i < n*2; i++ {
		assert.NoError(t, <-errs)
	}

	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, amara.ID))
	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, bayo.ID))
}

func TestTipContent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	bayo := createTestUser(t, store, "bayo")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	post := &models.Post{ID: uuid.New(), UserID: bayo.ID}
	require.NoError(t, store.Queries().CreatePost(ctx, post))
	reel := &models.Reel{ID: uuid.New(), UserID: bayo.ID}
	require.NoError(t, store.Queries().CreateReel(ctx, reel))

	tx, err := ledger.Transfers.TipContent(ctx, amara.ID, post.ID.String(), domain.FromCoins(5), "nice shot")
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypeContentTip, tx.Type)
	assert.Equal(t, bayo.ID, tx.RecipientID)

	// Reels resolve after posts.
	tx, err = ledger.Transfers.TipContent(ctx, amara.ID, reel.ID.String(), domain.FromCoins(5), "")
	require.NoError(t, err)
	assert.Equal(t, bayo.ID, tx.RecipientID)

	_, err = ledger.Transfers.TipContent(ctx, amara.ID, uuid.NewString(), domain.FromCoins(5), "")
	assert.ErrorIs(t, err, models.ErrContentNotFound)
}

func TestTipOwnContentRejected(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	post := &models.Post{ID: uuid.New(), UserID: amara.ID}
	require.NoError(t, store.Queries().CreatePost(ctx, post))

	_, err = ledger.Transfers.TipContent(ctx, amara.ID, post.ID.String(), domain.FromCoins(5), "")
	assert.ErrorIs(t, err, models.ErrSelfTipNotAllowed)
	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, amara.ID))
}

func TestRewardUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, queue, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")

	tx, err := ledger.Transfers.RewardUser(ctx, amara.ID, domain.FromCoins(50), "weekly creator reward")
	require.NoError(t, err)
	assert.Nil(t, tx.SenderID)
	assert.Equal(t, domain.TxTypeRewardDistribution, tx.Type)
	assert.Equal(t, domain.TxStatusConfirmed, tx.Status)

	// Grant plus reward.
	assert.Equal(t, domain.FromCoins(1050), walletBalance(t, db, amara.ID))
	assert.Len(t, queue.notificationsOfType(events.NotificationReceived), 1)
}
