package service

import (
	"context"
	"testing"
	"time"

	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/maschat/masscoin-ledger/internal/events"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/maschat/masscoin-ledger/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRequestParties(t *testing.T, ledger *Ledger, store *repository.Store) (sender, recipient *models.User) {
	t.Helper()
	ctx := context.Background()
	sender = createTestUser(t, store, "amara")
	recipient = createTestUser(t, store, "bayo")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, sender.ID)
	require.NoError(t, err)
	_, err = ledger.Wallets.GetOrCreateWallet(ctx, recipient.ID)
	require.NoError(t, err)
	return sender, recipient
}

func TestCreateTransferRequestEscrowsAmount(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, queue, store := newTestLedger(t, db)
	ctx := context.Background()
	sender, recipient := seedRequestParties(t, ledger, store)

	req, err := ledger.Requests.Create(ctx, CreateTransferRequestParams{
		SenderID:     sender.ID,
		RecipientID:  recipient.ID,
		AmountMicros: domain.FromCoins(300),
		Message:      "for the tickets",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, req.Status)
	assert.Equal(t, domain.ContextTypeNone, req.ContextType)
	assert.True(t, req.ExpiresAt.After(time.Now()))

	// The amount left the sender immediately; the recipient has nothing yet.
	assert.Equal(t, domain.FromCoins(700), walletBalance(t, db, sender.ID))
	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, recipient.ID))

	assert.Len(t, queue.notificationsOfType(events.NotificationTransferRequest), 1)
}

func TestCreateTransferRequestInsufficientFunds(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()
	sender, recipient := seedRequestParties(t, ledger, store)

	_, err := ledger.Requests.Create(ctx, CreateTransferRequestParams{
		SenderID:     sender.ID,
		RecipientID:  recipient.ID,
		AmountMicros: domain.FromCoins(1001),
	})
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, sender.ID))
}

func TestCreateTransferRequestDuplicatePending(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()
	sender, recipient := seedRequestParties(t, ledger, store)

	postID := "post-123"
	arg := CreateTransferRequestParams{
		SenderID:     sender.ID,
		RecipientID:  recipient.ID,
		AmountMicros: domain.FromCoins(50),
		ContextType:  domain.ContextTypePost,
		ContextID:    &postID,
	}
	_, err := ledger.Requests.Create(ctx, arg)
	require.NoError(t, err)

	_, err = ledger.Requests.Create(ctx, arg)
	assert.ErrorIs(t, err, models.ErrDuplicateRequest)

	// The rejected duplicate's debit rolled back with it.
	assert.Equal(t, domain.FromCoins(950), walletBalance(t, db, sender.ID))

	// A different context is a different request.
	otherPost := "post-456"
	other := arg
	other.ContextID = &otherPost
	_, err = ledger.Requests.Create(ctx, other)
	assert.NoError(t, err)
}

func TestApproveTransferRequest(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, queue, store := newTestLedger(t, db)
	ctx := context.Background()
	sender, recipient := seedRequestParties(t, ledger, store)

	req, err := ledger.Requests.Create(ctx, CreateTransferRequestParams{
		SenderID:     sender.ID,
		RecipientID:  recipient.ID,
		AmountMicros: domain.FromCoins(300),
		Message:      "for the tickets",
	})
	require.NoError(t, err)

	tx, err := ledger.Requests.Approve(ctx, recipient.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypeP2PTransfer, tx.Type)
	assert.Equal(t, domain.TxStatusConfirmed, tx.Status)
	assert.Equal(t, "for the tickets", tx.Description)

	assert.Equal(t, domain.FromCoins(700), walletBalance(t, db, sender.ID))
	assert.Equal(t, domain.FromCoins(1300), walletBalance(t, db, recipient.ID))

	got, err := store.Queries().GetTransferRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, got.Status)

	assert.Len(t, queue.notificationsOfType(events.NotificationReceived), 1)
	assert.Len(t, queue.notificationsOfType(events.NotificationTransferApproved), 1)

	// Approving again is a conflict, not a double credit.
	_, err = ledger.Requests.Approve(ctx, recipient.ID, req.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
	assert.Equal(t, domain.FromCoins(1300), walletBalance(t, db, recipient.ID))
}

func TestApproveRequiresRecipient(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()
	sender, recipient := seedRequestParties(t, ledger, store)
	mallory := createTestUser(t, store, "mallory")

	req, err := ledger.Requests.Create(ctx, CreateTransferRequestParams{
		SenderID:     sender.ID,
		RecipientID:  recipient.ID,
		AmountMicros: domain.FromCoins(10),
	})
	require.NoError(t, err)

	_, err = ledger.Requests.Approve(ctx, mallory.ID, req.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = ledger.Requests.Approve(ctx, sender.ID, req.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = ledger.Requests.Approve(ctx, recipient.ID, newUUID(t))
	assert.ErrorIs(t, err, models.ErrRequestNotFound)
}

func TestRejectTransferRequestRefunds(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, queue, store := newTestLedger(t, db)
	ctx := context.Background()
	sender, recipient := seedRequestParties(t, ledger, store)

	req, err := ledger.Requests.Create(ctx, CreateTransferRequestParams{
		SenderID:     sender.ID,
		RecipientID:  recipient.ID,
		AmountMicros: domain.FromCoins(300),
	})
	require.NoError(t, err)

	require.NoError(t, ledger.Requests.Reject(ctx, recipient.ID, req.ID))

	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, sender.ID))
	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, recipient.ID))

	got, err := store.Queries().GetTransferRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, got.Status)
	assert.Len(t, queue.notificationsOfType(events.NotificationTransferRejected), 1)

	err = ledger.Requests.Reject(ctx, recipient.ID, req.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestApproveExpiredRequestRefundsSender(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()
	sender, recipient := seedRequestParties(t, ledger, store)

	req, err := ledger.Requests.Create(ctx, CreateTransferRequestParams{
		SenderID:     sender.ID,
		RecipientID:  recipient.ID,
		AmountMicros: domain.FromCoins(300),
	})
	require.NoError(t, err)

	// Cross the expiry boundary without sleeping.
	ledger.Requests.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	_, err = ledger.Requests.Approve(ctx, recipient.ID, req.ID)
	assert.ErrorIs(t, err, models.ErrRequestExpired)

	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, sender.ID))
	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, recipient.ID))

	got, err := store.Queries().GetTransferRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusExpired, got.Status)
}

func TestExpireStaleSweepsExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, queue, store := newTestLedger(t, db)
	ctx := context.Background()
	sender, recipient := seedRequestParties(t, ledger, store)

	req, err := ledger.Requests.Create(ctx, CreateTransferRequestParams{
		SenderID:     sender.ID,
		RecipientID:  recipient.ID,
		AmountMicros: domain.FromCoins(300),
	})
	require.NoError(t, err)

	ledger.Requests.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	expired, err := ledger.Requests.ExpireStale(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, sender.ID))

	got, err := store.Queries().GetTransferRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusExpired, got.Status)

	// A second sweep finds nothing: no double refund, no extra notification.
	expired, err = ledger.Requests.ExpireStale(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
	assert.Equal(t, domain.SignupGrantMicros, walletBalance(t, db, sender.ID))
	assert.Len(t, queue.notificationsOfType(events.NotificationTransferRejected), 1)
}

func TestConcurrentApproveAndExpire(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()
	sender, recipient := seedRequestParties(t, ledger, store)

	// A second service over the same store plays the sweeper whose clock has
	// already passed the expiry.
	sweeper := NewTransferRequestService(store, NewDispatcher(store, &fakeQueue{}))
	sweeper.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	req, err := ledger.Requests.Create(ctx, CreateTransferRequestParams{
		SenderID:     sender.ID,
		RecipientID:  recipient.ID,
		AmountMicros: domain.FromCoins(300),
	})
	require.NoError(t, err)

	done := make(chan struct{}, 2)
	var approveErr error
	go func() {
		_, approveErr = ledger.Requests.Approve(ctx, recipient.ID, req.ID)
		done <- struct{}{}
	}()
	go func() {
		_, _ = sweeper.ExpireStale(ctx, 100)
		done <- struct{}{}
	}()
	<-done
	<-done

	// Exactly one path won. Either the approval moved the escrow to the
	// recipient, or the sweep refunded the sender. Value is conserved either
	// way.
	got, err := store.Queries().GetTransferRequest(ctx, req.ID)
	require.NoError(t, err)
	senderBal := walletBalance(t, db, sender.ID)
	recipientBal := walletBalance(t, db, recipient.ID)
	assert.Equal(t, 2*domain.SignupGrantMicros, senderBal+recipientBal)

	switch got.Status {
	case domain.RequestStatusApproved:
		require.NoError(t, approveErr)
		assert.Equal(t, domain.FromCoins(700), senderBal)
		assert.Equal(t, domain.FromCoins(1300), recipientBal)
	case domain.RequestStatusExpired:
		assert.Error(t, approveErr)
		assert.Equal(t, domain.SignupGrantMicros, senderBal)
		assert.Equal(t, domain.SignupGrantMicros, recipientBal)
	default:
		t.Fatalf("request left in unexpected status %q", got.Status)
	}
}

func TestListAndCountPending(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()
	sender, recipient := seedRequestParties(t, ledger, store)

	for i, amount := range []int64{10, 20, 30} {
		ctxID := string(rune('a' + i))
		_, err := ledger.Requests.Create(ctx, CreateTransferRequestParams{
			SenderID:     sender.ID,
			RecipientID:  recipient.ID,
			AmountMicros: domain.FromCoins(amount),
			ContextType:  domain.ContextTypePost,
			ContextID:    &ctxID,
		})
		require.NoError(t, err)
	}

	pending, err := ledger.Requests.ListPending(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	count, err := ledger.Requests.CountPending(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// The sender has no inbound requests.
	count, err = ledger.Requests.CountPending(ctx, sender.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
