package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/maschat/masscoin-ledger/internal/repository"
)

// StatsService serves transaction history pages and per-user aggregates.
type StatsService struct {
	store QueryStore
}

func NewStatsService(store QueryStore) *StatsService {
	return &StatsService{store: store}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type TransactionPage struct {
	Transactions []models.Transaction `json:"transactions"`
	Page         int32                `json:"page"`
	Size         int32                `json:"size"`
	Total        int64                `json:"total"`
}

// UserTransactions returns one page of the user's history, newest first.
// Page is zero-based; out-of-range sizes are clamped.
func (s *StatsService) UserTransactions(ctx context.Context, userID uuid.UUID, page, size int32) (*TransactionPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	q := s.store.Queries()
	txs, err := q.ListUserTransactions(ctx, repository.ListUserTransactionsParams{
		UserID: userID,
		Limit:  size,
		Offset: page * size,
	})
	if err != nil {
		return nil, err
	}
	total, err := q.CountUserTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &TransactionPage{Transactions: txs, Page: page, Size: size, Total: total}, nil
}

// UserStats aggregates the user's ledger activity.
func (s *StatsService) UserStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	q := s.store.Queries()
	tips := repository.TypeScopeParams{UserID: userID, Type: domain.TxTypeContentTip}

	stats := &models.UserStats{}
	var err error
	if stats.TotalTransactions, err = q.CountUserTransactions(ctx, userID); err != nil {
		return nil, err
	}
	if stats.TotalVolumeMicros, err = q.SumUserVolume(ctx, userID); err != nil {
		return nil, err
	}
	if stats.AverageAmountMicros, err = q.AvgUserAmount(ctx, userID); err != nil {
		return nil, err
	}
	if stats.TipsReceived, err = q.CountReceivedByType(ctx, tips); err != nil {
		return nil, err
	}
	if stats.TipsReceivedMicros, err = q.SumReceivedByType(ctx, tips); err != nil {
		return nil, err
	}
	if stats.TipsSent, err = q.CountSentByType(ctx, tips); err != nil {
		return nil, err
	}
	if stats.TipsSentMicros, err = q.SumSentByType(ctx, tips); err != nil {
		return nil, err
	}
	if stats.PendingTransferCount, err = q.CountPendingRequestsForRecipient(ctx, userID); err != nil {
		return nil, err
	}
	return stats, nil
}
