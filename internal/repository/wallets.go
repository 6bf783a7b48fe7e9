package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/models"
)

const walletColumns = `id, user_id, balance_micros, staked_micros, wallet_address, created_at, updated_at`

func scanWallet(row interface{ Scan(...any) error }) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.BalanceMicros, &w.StakedMicros, &w.WalletAddress, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

type InsertWalletParams struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	BalanceMicros int64
	WalletAddress string
}

// InsertWallet creates a wallet if the user has none yet. Returns the number
// of rows inserted (0 when a wallet already existed) so callers can tell
// whether the signup grant applies.
func (q *Queries) InsertWallet(ctx context.Context, arg InsertWalletParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO wallets (id, user_id, balance_micros, staked_micros, wallet_address, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING`,
		arg.ID, arg.UserID, arg.BalanceMicros, arg.WalletAddress)
	if err != nil {
		return 0, fmt.Errorf("insert wallet: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) GetWalletByUserID(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	row := q.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	return scanWallet(row)
}

// GetWalletForUpdate locks the wallet row for the duration of the enclosing
// transaction.
func (q *Queries) GetWalletForUpdate(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	row := q.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	return scanWallet(row)
}

type AdjustWalletBalanceParams struct {
	DeltaMicros int64
	UserID      uuid.UUID
}

// AdjustWalletBalance applies a signed delta to the balance. The WHERE clause
// refuses any update that would drive the balance negative, so the row count
// distinguishes success from insufficient funds.
func (q *Queries) AdjustWalletBalance(ctx context.Context, arg AdjustWalletBalanceParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE wallets
		SET balance_micros = balance_micros + $1, updated_at = NOW()
		WHERE user_id = $2 AND balance_micros + $1 >= 0`,
		arg.DeltaMicros, arg.UserID)
	if err != nil {
		return 0, fmt.Errorf("adjust wallet balance: %w", err)
	}
	return tag.RowsAffected(), nil
}

type StakeWalletParams struct {
	AmountMicros int64
	UserID       uuid.UUID
}

// StakeWallet moves amount from balance to staked. Guarded the same way as
// AdjustWalletBalance.
func (q *Queries) StakeWallet(ctx context.Context, arg StakeWalletParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE wallets
		SET balance_micros = balance_micros - $1,
		    staked_micros  = staked_micros + $1,
		    updated_at     = NOW()
		WHERE user_id = $2 AND balance_micros >= $1`,
		arg.AmountMicros, arg.UserID)
	if err != nil {
		return 0, fmt.Errorf("stake wallet: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UnstakeWallet moves amount from staked back to balance.
func (q *Queries) UnstakeWallet(ctx context.Context, arg StakeWalletParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE wallets
		SET balance_micros = balance_micros + $1,
		    staked_micros  = staked_micros - $1,
		    updated_at     = NOW()
		WHERE user_id = $2 AND staked_micros >= $1`,
		arg.AmountMicros, arg.UserID)
	if err != nil {
		return 0, fmt.Errorf("unstake wallet: %w", err)
	}
	return tag.RowsAffected(), nil
}

type UpdateWalletAddressParams struct {
	WalletAddress string
	UserID        uuid.UUID
}

func (q *Queries) UpdateWalletAddress(ctx context.Context, arg UpdateWalletAddressParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE wallets SET wallet_address = $1, updated_at = NOW() WHERE user_id = $2`,
		arg.WalletAddress, arg.UserID)
	if err != nil {
		return 0, fmt.Errorf("update wallet address: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SumWalletMicros returns the total of all balances plus staked amounts.
func (q *Queries) SumWalletMicros(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(balance_micros + staked_micros), 0) FROM wallets`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum wallet micros: %w", err)
	}
	return total, nil
}
