package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserTransactionsPagination(t *testing.T) {
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

	for i := 0; i < 5; i++ {
		_, err = ledger.Transfers.TransferDirect(ctx, DirectTransferParams{
			SenderID:     amara.ID,
			RecipientID:  bayo.ID,
			AmountMicros: domain.FromCoins(1),
			Type:         domain.TxTypeP2PTransfer,
		})
		require.NoError(t, err)
	}

	// Five transfers plus amara's own airdrop.
	page, err := ledger.Stats.UserTransactions(ctx, amara.ID, 0, 4)
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 4)
	assert.Equal(t, int64(6), page.Total)

	page, err = ledger.Stats.UserTransactions(ctx, amara.ID, 1, 4)
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 2)

	// Newest first.
	page, err = ledger.Stats.UserTransactions(ctx, amara.ID, 0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, page.Transactions)
	assert.Equal(t, int32(defaultPageSize), page.Size)
	first := page.Transactions[0]
	last := page.Transactions[len(page.Transactions)-1]
	assert.False(t, first.CreatedAt.Before(last.CreatedAt))
}

func TestUserStatsAggregates(t *testing.T) {
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

	post := &models.Post{ID: uuid.New(), UserID: bayo.ID}
	require.NoError(t, store.Queries().CreatePost(ctx, post))

	_, err = ledger.Transfers.TipContent(ctx, amara.ID, post.ID.String(), domain.FromCoins(5), "great post")
	require.NoError(t, err)
	_, err = ledger.Transfers.TipContent(ctx, amara.ID, post.ID.String(), domain.FromCoins(3), "")
	require.NoError(t, err)

	_, err = ledger.Requests.Create(ctx, CreateTransferRequestParams{
		SenderID:     amara.ID,
		RecipientID:  bayo.ID,
		AmountMicros: domain.FromCoins(20),
		ContextType:  domain.ContextTypeNone,
	})
	require.NoError(t, err)

	amaraStats, err := ledger.Stats.UserStats(ctx, amara.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), amaraStats.TipsSent)
	assert.Equal(t, domain.FromCoins(8), amaraStats.TipsSentMicros)
	assert.Zero(t, amaraStats.TipsReceived)
	assert.Equal(t, int64(3), amaraStats.TotalTransactions)

	bayoStats, err := ledger.Stats.UserStats(ctx, bayo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), bayoStats.TipsReceived)
	assert.Equal(t, domain.FromCoins(8), bayoStats.TipsReceivedMicros)
	assert.Equal(t, int64(1), bayoStats.PendingTransferCount)
}
