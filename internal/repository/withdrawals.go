package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/models"
)

type InsertWithdrawalParams struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	AmountMicros int64
	Method       string
	Destination  string
	Metadata     []byte
}

func (q *Queries) InsertWithdrawal(ctx context.Context, arg InsertWithdrawalParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO withdrawal_requests (id, user_id, amount_micros, method, destination, metadata, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'PENDING', NOW())`,
		arg.ID, arg.UserID, arg.AmountMicros, arg.Method, arg.Destination, arg.Metadata)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

func (q *Queries) ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID) ([]models.WithdrawalRequest, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, amount_micros, method, destination, metadata, status, created_at
		FROM withdrawal_requests
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	var out []models.WithdrawalRequest
	for rows.Next() {
		var wr models.WithdrawalRequest
		if err := rows.Scan(&wr.ID, &wr.UserID, &wr.AmountMicros, &wr.Method, &wr.Destination,
			&wr.Metadata, &wr.Status, &wr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan withdrawal: %w", err)
		}
		out = append(out, wr)
	}
	return out, rows.Err()
}
