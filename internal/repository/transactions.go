package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/maschat/masscoin-ledger/internal/models"
)

const transactionColumns = `id, sender_id, recipient_id, amount_micros, type, status, description, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (models.Transaction, error) {
	var t models.Transaction
	var sender pgtype.UUID
	err := row.Scan(&t.ID, &sender, &t.RecipientID, &t.AmountMicros, &t.Type, &t.Status, &t.Description, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	t.SenderID = FromPgUUIDPtr(sender)
	return t, nil
}

type InsertTransactionParams struct {
	ID           uuid.UUID
	SenderID     *uuid.UUID
	RecipientID  uuid.UUID
	AmountMicros int64
	Type         string
	Status       string
	Description  string
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO transactions (id, sender_id, recipient_id, amount_micros, type, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		arg.ID, ToPgUUIDPtr(arg.SenderID), arg.RecipientID, arg.AmountMicros, arg.Type, arg.Status, arg.Description)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	row := q.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

type UpdateTransactionStatusParams struct {
	Status string
	ID     uuid.UUID
}

// UpdateTransactionStatus transitions a PENDING record forward. Terminal
// records are never touched, so the returned row count is the compare-and-set
// outcome.
func (q *Queries) UpdateTransactionStatus(ctx context.Context, arg UpdateTransactionStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE transactions SET status = $1 WHERE id = $2 AND status = 'PENDING'`,
		arg.Status, arg.ID)
	if err != nil {
		return 0, fmt.Errorf("update transaction status: %w", err)
	}
	return tag.RowsAffected(), nil
}

type ListUserTransactionsParams struct {
	UserID uuid.UUID
	Limit  int32
	Offset int32
}

func (q *Queries) ListUserTransactions(ctx context.Context, arg ListUserTransactionsParams) ([]models.Transaction, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE sender_id = $1 OR recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("list user transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) CountUserTransactions(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM transactions WHERE sender_id = $1 OR recipient_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count user transactions: %w", err)
	}
	return count, nil
}

func (q *Queries) SumUserVolume(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_micros), 0) FROM transactions
		WHERE sender_id = $1 OR recipient_id = $1`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum user volume: %w", err)
	}
	return total, nil
}

func (q *Queries) AvgUserAmount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var avg int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(AVG(amount_micros), 0)::BIGINT FROM transactions
		WHERE sender_id = $1 OR recipient_id = $1`, userID).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("avg user amount: %w", err)
	}
	return avg, nil
}

type TypeScopeParams struct {
	UserID uuid.UUID
	Type   string
}

func (q *Queries) CountReceivedByType(ctx context.Context, arg TypeScopeParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM transactions WHERE recipient_id = $1 AND type = $2`,
		arg.UserID, arg.Type).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count received by type: %w", err)
	}
	return count, nil
}

func (q *Queries) SumReceivedByType(ctx context.Context, arg TypeScopeParams) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_micros), 0) FROM transactions WHERE recipient_id = $1 AND type = $2`,
		arg.UserID, arg.Type).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum received by type: %w", err)
	}
	return total, nil
}

func (q *Queries) CountSentByType(ctx context.Context, arg TypeScopeParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM transactions WHERE sender_id = $1 AND type = $2`,
		arg.UserID, arg.Type).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sent by type: %w", err)
	}
	return count, nil
}

func (q *Queries) SumSentByType(ctx context.Context, arg TypeScopeParams) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_micros), 0) FROM transactions WHERE sender_id = $1 AND type = $2`,
		arg.UserID, arg.Type).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum sent by type: %w", err)
	}
	return total, nil
}

// SumConfirmedIssuance totals value created by airdrops and rewards.
func (q *Queries) SumConfirmedIssuance(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_micros), 0) FROM transactions
		WHERE type IN ('AIRDROP', 'REWARD_DISTRIBUTION') AND status = 'CONFIRMED'`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum confirmed issuance: %w", err)
	}
	return total, nil
}

// SumActiveWithdrawals totals value that has left wallets for withdrawal and
// has not been marked FAILED (failed withdrawals are refunded externally).
func (q *Queries) SumActiveWithdrawals(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_micros), 0) FROM transactions
		WHERE type = 'WITHDRAWAL' AND status != 'FAILED'`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum active withdrawals: %w", err)
	}
	return total, nil
}
