package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue names for outbound side effects. Downstream consumers (notification
// fan-out, chat persistence/broadcast) drain these independently of the
// ledger, so a collaborator outage never reaches a ledger transaction.
const (
	NotificationQueue = "masscoin:notifications"
	ChatQueue         = "masscoin:chat"
)

// Notification types mirrored from the consuming notification service.
const (
	NotificationTransferRequest  = "MASS_COIN_TRANSFER_REQUEST"
	NotificationReceived         = "MASS_COIN_RECEIVED"
	NotificationSent             = "MASS_COIN_SENT"
	NotificationTransferApproved = "MASS_COIN_TRANSFER_APPROVED"
	NotificationTransferRejected = "MASS_COIN_TRANSFER_REJECTED"
)

type NotificationEvent struct {
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Type        string    `json:"type"`
	RelatedID   string    `json:"related_id,omitempty"`
	RelatedType string    `json:"related_type,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	ActorName   string    `json:"actor_name,omitempty"`
	ActorAvatar string    `json:"actor_avatar,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type ChatEvent struct {
	SenderID      string    `json:"sender_id"`
	RecipientID   string    `json:"recipient_id"`
	Content       string    `json:"content"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher pushes side-effect events onto Redis lists.
type Publisher struct {
	client redis.Cmdable
}

func NewPublisher(client redis.Cmdable) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Enqueue(ctx context.Context, queue string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("push event to %s: %w", queue, err)
	}
	return nil
}
