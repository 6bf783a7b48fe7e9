package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/maschat/masscoin-ledger/internal/observability"
	"github.com/maschat/masscoin-ledger/internal/repository"
)

// WalletService owns wallet lifecycle and the staking operations.
type WalletService struct {
	store QueryStore
	audit *AuditService
}

func NewWalletService(store QueryStore) *WalletService {
	return &WalletService{
		store: store,
		audit: NewAuditService(store),
	}
}

// GetOrCreateWallet returns the user's wallet, creating it with the signup
// grant on first access. Safe under concurrent first access: the upsert keyed
// on user_id guarantees at most one wallet (and one airdrop) per user.
func (s *WalletService) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if _, err := qtx.GetUser(ctx, userID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrUserNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		if _, err := ensureWallet(ctx, qtx, userID); err != nil {
			return err
		}

		var err error
		wallet, err = qtx.GetWalletByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("load wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// UpdateWalletAddress replaces the wallet's external address.
func (s *WalletService) UpdateWalletAddress(ctx context.Context, userID uuid.UUID, newAddress string) (*models.Wallet, error) {
	if strings.TrimSpace(newAddress) == "" {
		return nil, errors.New("wallet address is required")
	}

	var wallet models.Wallet
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		rows, err := qtx.UpdateWalletAddress(ctx, repository.UpdateWalletAddressParams{
			WalletAddress: newAddress,
			UserID:        userID,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return models.ErrWalletNotFound
		}

		wallet, err = qtx.GetWalletByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Stake moves amount from balance to stakedAmount.
func (s *WalletService) Stake(ctx context.Context, userID uuid.UUID, amountMicros int64) (*models.Wallet, error) {
	if amountMicros <= 0 {
		return nil, models.ErrInvalidAmount
	}

	var wallet models.Wallet
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		locked, err := qtx.GetWalletForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrWalletNotFound
			}
			return fmt.Errorf("lock wallet: %w", err)
		}
		if locked.BalanceMicros < amountMicros {
			return models.ErrInsufficientFunds
		}

		rows, err := qtx.StakeWallet(ctx, repository.StakeWalletParams{
			AmountMicros: amountMicros,
			UserID:       userID,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "stake wallet"); err != nil {
			return err
		}

		wallet, err = qtx.GetWalletByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Unstake moves amount from stakedAmount back to balance.
func (s *WalletService) Unstake(ctx context.Context, userID uuid.UUID, amountMicros int64) (*models.Wallet, error) {
	if amountMicros <= 0 {
		return nil, models.ErrInvalidAmount
	}

	var wallet models.Wallet
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		locked, err := qtx.GetWalletForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrWalletNotFound
			}
			return fmt.Errorf("lock wallet: %w", err)
		}
		if locked.StakedMicros < amountMicros {
			return models.ErrInsufficientStake
		}

		rows, err := qtx.UnstakeWallet(ctx, repository.StakeWalletParams{
			AmountMicros: amountMicros,
			UserID:       userID,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "unstake wallet"); err != nil {
			return err
		}

		wallet, err = qtx.GetWalletByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// ensureWallet creates the wallet with the signup grant if the user has none,
// recording the airdrop in the same transaction. Returns whether a wallet was
// created.
func ensureWallet(ctx context.Context, qtx *repository.Queries, userID uuid.UUID) (bool, error) {
	rows, err := qtx.InsertWallet(ctx, repository.InsertWalletParams{
		ID:            uuid.New(),
		UserID:        userID,
		BalanceMicros: domain.SignupGrantMicros,
		WalletAddress: newWalletAddress(),
	})
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	if err := qtx.InsertTransaction(ctx, repository.InsertTransactionParams{
		ID:           uuid.New(),
		SenderID:     nil,
		RecipientID:  userID,
		AmountMicros: domain.SignupGrantMicros,
		Type:         domain.TxTypeAirdrop,
		Status:       domain.TxStatusConfirmed,
		Description:  "Welcome bonus - 1000 Mass Coins",
	}); err != nil {
		return false, err
	}
	observability.IncrementTransaction(domain.TxTypeAirdrop)
	return true, nil
}

// newWalletAddress generates an opaque MC-prefixed address.
func newWalletAddress() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "MC" + strings.ToUpper(raw)
}
