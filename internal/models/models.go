package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInsufficientStake = errors.New("insufficient staked amount")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrRequestNotFound   = errors.New("transfer request not found")
	ErrTxNotFound        = errors.New("transaction not found")
	ErrUnauthorized      = errors.New("not authorized for this request")
	ErrInvalidState      = errors.New("request is not pending")
	ErrRequestExpired    = errors.New("transfer request has expired")
	ErrDuplicateRequest  = errors.New("pending transfer request already exists")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidWithdrawal = errors.New("withdrawal method and destination are required")
	ErrSelfTipNotAllowed = errors.New("cannot tip yourself")
	ErrContentNotFound   = errors.New("content not found")
)

type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Wallet holds one balance/staked pair per user. Balance excludes staked
// funds; both are micros and never negative.
type Wallet struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	BalanceMicros int64     `json:"balance_micros"`
	StakedMicros  int64     `json:"staked_micros"`
	WalletAddress string    `json:"wallet_address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Transaction is an append-only audit record of one value movement.
// SenderID is nil for issuance (airdrop, reward).
type Transaction struct {
	ID           uuid.UUID  `json:"id"`
	SenderID     *uuid.UUID `json:"sender_id,omitempty"`
	RecipientID  uuid.UUID  `json:"recipient_id"`
	AmountMicros int64      `json:"amount_micros"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Description  string     `json:"description,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TransferRequest is the two-phase escrow record. The amount has already been
// debited from the sender's balance when the row exists in PENDING.
type TransferRequest struct {
	ID           uuid.UUID `json:"id"`
	SenderID     uuid.UUID `json:"sender_id"`
	RecipientID  uuid.UUID `json:"recipient_id"`
	AmountMicros int64     `json:"amount_micros"`
	Message      string    `json:"message,omitempty"`
	ContextType  string    `json:"context_type"`
	ContextID    *string   `json:"context_id,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// WithdrawalRequest records a user's intent to exit value. The amount is
// debited at creation; settlement happens outside this service.
type WithdrawalRequest struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	AmountMicros int64     `json:"amount_micros"`
	Method       string    `json:"method"`
	Destination  string    `json:"destination"`
	Metadata     []byte    `json:"metadata,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type Post struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

type Reel struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

// UserStats aggregates ledger activity for one user.
type UserStats struct {
	TotalTransactions    int64 `json:"total_transactions"`
	TotalVolumeMicros    int64 `json:"total_volume_micros"`
	AverageAmountMicros  int64 `json:"average_amount_micros"`
	TipsReceived         int64 `json:"tips_received"`
	TipsReceivedMicros   int64 `json:"tips_received_micros"`
	TipsSent             int64 `json:"tips_sent"`
	TipsSentMicros       int64 `json:"tips_sent_micros"`
	PendingTransferCount int64 `json:"pending_transfer_count"`
}
