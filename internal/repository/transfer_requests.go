package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/models"
)

const transferRequestColumns = `id, sender_id, recipient_id, amount_micros, message, context_type, context_id, status, created_at, expires_at`

func scanTransferRequest(row interface{ Scan(...any) error }) (models.TransferRequest, error) {
	var tr models.TransferRequest
	err := row.Scan(&tr.ID, &tr.SenderID, &tr.RecipientID, &tr.AmountMicros, &tr.Message,
		&tr.ContextType, &tr.ContextID, &tr.Status, &tr.CreatedAt, &tr.ExpiresAt)
	return tr, err
}

type InsertTransferRequestParams struct {
	ID           uuid.UUID
	SenderID     uuid.UUID
	RecipientID  uuid.UUID
	AmountMicros int64
	Message      string
	ContextType  string
	ContextID    *string
	ExpiresAt    time.Time
}

// InsertTransferRequest relies on the partial unique index over
// (sender, recipient, context_type, context_id) WHERE status = 'PENDING' to
// reject duplicates; callers map the unique violation to ErrDuplicateRequest.
func (q *Queries) InsertTransferRequest(ctx context.Context, arg InsertTransferRequestParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO transfer_requests
			(id, sender_id, recipient_id, amount_micros, message, context_type, context_id, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'PENDING', NOW(), $8)`,
		arg.ID, arg.SenderID, arg.RecipientID, arg.AmountMicros, arg.Message,
		arg.ContextType, arg.ContextID, arg.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert transfer request: %w", err)
	}
	return nil
}

func (q *Queries) GetTransferRequest(ctx context.Context, id uuid.UUID) (models.TransferRequest, error) {
	row := q.db.QueryRow(ctx, `SELECT `+transferRequestColumns+` FROM transfer_requests WHERE id = $1`, id)
	return scanTransferRequest(row)
}

func (q *Queries) GetTransferRequestForUpdate(ctx context.Context, id uuid.UUID) (models.TransferRequest, error) {
	row := q.db.QueryRow(ctx, `SELECT `+transferRequestColumns+` FROM transfer_requests WHERE id = $1 FOR UPDATE`, id)
	return scanTransferRequest(row)
}

type ResolveTransferRequestParams struct {
	Status string
	ID     uuid.UUID
}

// ResolveTransferRequest is the compare-and-set from PENDING to a terminal
// state. Exactly one caller wins; everyone else sees zero rows and must treat
// the request as already resolved.
func (q *Queries) ResolveTransferRequest(ctx context.Context, arg ResolveTransferRequestParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE transfer_requests SET status = $1 WHERE id = $2 AND status = 'PENDING'`,
		arg.Status, arg.ID)
	if err != nil {
		return 0, fmt.Errorf("resolve transfer request: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) ListPendingRequestsForRecipient(ctx context.Context, recipientID uuid.UUID) ([]models.TransferRequest, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+transferRequestColumns+` FROM transfer_requests
		WHERE recipient_id = $1 AND status = 'PENDING'
		ORDER BY created_at DESC`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	var out []models.TransferRequest
	for rows.Next() {
		tr, err := scanTransferRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer request: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (q *Queries) CountPendingRequestsForRecipient(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM transfer_requests WHERE recipient_id = $1 AND status = 'PENDING'`,
		recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}
	return count, nil
}

type ListExpiredPendingRequestsParams struct {
	Now   time.Time
	Limit int32
}

// ListExpiredPendingRequests feeds the sweeper. The listing is a plain read;
// the per-request CAS in ResolveTransferRequest decides which path actually
// expires a request.
func (q *Queries) ListExpiredPendingRequests(ctx context.Context, arg ListExpiredPendingRequestsParams) ([]models.TransferRequest, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+transferRequestColumns+` FROM transfer_requests
		WHERE status = 'PENDING' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2`, arg.Now, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("list expired pending requests: %w", err)
	}
	defer rows.Close()

	var out []models.TransferRequest
	for rows.Next() {
		tr, err := scanTransferRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer request: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// SumPendingEscrow totals the value currently held against PENDING requests.
func (q *Queries) SumPendingEscrow(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_micros), 0) FROM transfer_requests WHERE status = 'PENDING'`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum pending escrow: %w", err)
	}
	return total, nil
}
