package service

import (
	"context"
	"strings"
	"testing"

	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateWalletGrantsAirdrop(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")

	wallet, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SignupGrantMicros, wallet.BalanceMicros)
	assert.Equal(t, int64(0), wallet.StakedMicros)
	assert.True(t, strings.HasPrefix(wallet.WalletAddress, "MC"))
	assert.Len(t, wallet.WalletAddress, 34)

	// The grant is recorded as a confirmed airdrop.
	var txCount int
	var description string
	err = db.QueryRow(ctx, `
		SELECT COUNT(*), MAX(description) FROM transactions
		WHERE recipient_id = $1 AND type = 'AIRDROP' AND status = 'CONFIRMED'`,
		amara.ID).Scan(&txCount, &description)
	require.NoError(t, err)
	assert.Equal(t, 1, txCount)
	assert.Equal(t, "Welcome bonus - 1000 Mass Coins", description)

	// Second call returns the same wallet without another grant.
	again, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, again.ID)
	assert.Equal(t, domain.SignupGrantMicros, again.BalanceMicros)

	err = db.QueryRow(ctx, `
		SELECT COUNT(*) FROM transactions WHERE recipient_id = $1 AND type = 'AIRDROP'`,
		amara.ID).Scan(&txCount)
	require.NoError(t, err)
	assert.Equal(t, 1, txCount)
}

func TestGetOrCreateWalletUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	_ = store

	_, err := ledger.Wallets.GetOrCreateWallet(context.Background(), newUUID(t))
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestStakeAndUnstake(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	wallet, err := ledger.Wallets.Stake(ctx, amara.ID, domain.FromCoins(400))
	require.NoError(t, err)
	assert.Equal(t, domain.FromCoins(600), wallet.BalanceMicros)
	assert.Equal(t, domain.FromCoins(400), wallet.StakedMicros)

	// Staking more than the spendable balance fails.
	_, err = ledger.Wallets.Stake(ctx, amara.ID, domain.FromCoins(601))
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	wallet, err = ledger.Wallets.Unstake(ctx, amara.ID, domain.FromCoins(150))
	require.NoError(t, err)
	assert.Equal(t, domain.FromCoins(750), wallet.BalanceMicros)
	assert.Equal(t, domain.FromCoins(250), wallet.StakedMicros)

	_, err = ledger.Wallets.Unstake(ctx, amara.ID, domain.FromCoins(251))
	assert.ErrorIs(t, err, models.ErrInsufficientStake)
}

func TestUpdateWalletAddress(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ledger, _, store := newTestLedger(t, db)
	ctx := context.Background()

	amara := createTestUser(t, store, "amara")
	_, err := ledger.Wallets.GetOrCreateWallet(ctx, amara.ID)
	require.NoError(t, err)

	wallet, err := ledger.Wallets.UpdateWalletAddress(ctx, amara.ID, "MCCUSTOMADDRESS")
	require.NoError(t, err)
	assert.Equal(t, "MCCUSTOMADDRESS", wallet.WalletAddress)

	_, err = ledger.Wallets.UpdateWalletAddress(ctx, newUUID(t), "MCANOTHER")
	assert.ErrorIs(t, err, models.ErrWalletNotFound)
}
