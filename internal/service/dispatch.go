package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/maschat/masscoin-ledger/internal/events"
	"github.com/maschat/masscoin-ledger/internal/models"
	"github.com/maschat/masscoin-ledger/internal/observability"
	"go.uber.org/zap"
)

// Queue is the outbound side-effect sink. The Redis publisher implements it
// in production; tests inject an in-memory recorder.
type Queue interface {
	Enqueue(ctx context.Context, queue string, payload any) error
}

// Dispatcher emits notification and chat events after a ledger mutation has
// committed. Every method is best-effort: failures are logged and swallowed,
// never surfaced to the caller and never retried here.
type Dispatcher struct {
	store QueryStore
	queue Queue
}

func NewDispatcher(store QueryStore, queue Queue) *Dispatcher {
	return &Dispatcher{store: store, queue: queue}
}

func (d *Dispatcher) TransferRequestCreated(ctx context.Context, req models.TransferRequest) {
	sender := d.lookupUser(ctx, req.SenderID)
	d.notify(ctx, events.NotificationEvent{
		UserID:      req.RecipientID.String(),
		Title:       "Mass Coin Transfer Request",
		Body:        fmt.Sprintf("%s wants to send you %s", sender.FullName, domain.FormatAmount(req.AmountMicros)),
		Type:        events.NotificationTransferRequest,
		RelatedID:   req.ID.String(),
		RelatedType: "MASS_COIN_TRANSFER",
		ActorID:     req.SenderID.String(),
		ActorName:   sender.FullName,
		ActorAvatar: sender.ProfilePicture,
	})
}

func (d *Dispatcher) TransferRequestApproved(ctx context.Context, req models.TransferRequest, tx models.Transaction) {
	sender := d.lookupUser(ctx, req.SenderID)
	recipient := d.lookupUser(ctx, req.RecipientID)

	d.notify(ctx, events.NotificationEvent{
		UserID:      req.RecipientID.String(),
		Title:       "Mass Coin Received",
		Body:        fmt.Sprintf("You received %s from %s", domain.FormatAmount(req.AmountMicros), sender.FullName),
		Type:        events.NotificationReceived,
		RelatedID:   tx.ID.String(),
		RelatedType: "MASS_COIN_TRANSACTION",
		ActorID:     req.SenderID.String(),
		ActorName:   sender.FullName,
		ActorAvatar: sender.ProfilePicture,
	})
	d.notify(ctx, events.NotificationEvent{
		UserID:      req.SenderID.String(),
		Title:       "Transfer Approved",
		Body:        fmt.Sprintf("%s approved your transfer of %s", recipient.FullName, domain.FormatAmount(req.AmountMicros)),
		Type:        events.NotificationTransferApproved,
		RelatedID:   tx.ID.String(),
		RelatedType: "MASS_COIN_TRANSACTION",
		ActorID:     req.RecipientID.String(),
		ActorName:   recipient.FullName,
		ActorAvatar: recipient.ProfilePicture,
	})
}

func (d *Dispatcher) TransferRequestRejected(ctx context.Context, req models.TransferRequest) {
	recipient := d.lookupUser(ctx, req.RecipientID)
	d.notify(ctx, events.NotificationEvent{
		UserID:      req.SenderID.String(),
		Title:       "Transfer Rejected",
		Body:        fmt.Sprintf("%s rejected your transfer of %s. Amount has been refunded.", recipient.FullName, domain.FormatAmount(req.AmountMicros)),
		Type:        events.NotificationTransferRejected,
		RelatedID:   req.ID.String(),
		RelatedType: "MASS_COIN_TRANSFER",
		ActorID:     req.RecipientID.String(),
		ActorName:   recipient.FullName,
		ActorAvatar: recipient.ProfilePicture,
	})
}

func (d *Dispatcher) TransferRequestExpired(ctx context.Context, req models.TransferRequest) {
	recipient := d.lookupUser(ctx, req.RecipientID)
	d.notify(ctx, events.NotificationEvent{
		UserID:      req.SenderID.String(),
		Title:       "Transfer Expired",
		Body:        fmt.Sprintf("Your transfer request to %s has expired. Amount has been refunded.", recipient.FullName),
		Type:        events.NotificationTransferRejected,
		RelatedID:   req.ID.String(),
		RelatedType: "MASS_COIN_TRANSFER",
		ActorID:     req.RecipientID.String(),
		ActorName:   recipient.FullName,
		ActorAvatar: recipient.ProfilePicture,
	})
}

// DirectTransfer notifies both parties and queues a chat record so the
// transfer shows up in their conversation history.
func (d *Dispatcher) DirectTransfer(ctx context.Context, tx models.Transaction, message string) {
	if tx.SenderID == nil {
		return
	}
	sender := d.lookupUser(ctx, *tx.SenderID)
	recipient := d.lookupUser(ctx, tx.RecipientID)
	amount := domain.FormatAmount(tx.AmountMicros)

	d.notify(ctx, events.NotificationEvent{
		UserID:      tx.RecipientID.String(),
		Title:       "Mass Coin Received",
		Body:        fmt.Sprintf("You received %s from %s", amount, sender.FullName),
		Type:        events.NotificationReceived,
		RelatedID:   tx.ID.String(),
		RelatedType: "MASS_COIN_TRANSACTION",
		ActorID:     tx.SenderID.String(),
		ActorName:   sender.FullName,
		ActorAvatar: sender.ProfilePicture,
	})
	d.notify(ctx, events.NotificationEvent{
		UserID:      tx.SenderID.String(),
		Title:       "Mass Coin Sent",
		Body:        fmt.Sprintf("You sent %s to %s", amount, recipient.FullName),
		Type:        events.NotificationSent,
		RelatedID:   tx.ID.String(),
		RelatedType: "MASS_COIN_TRANSACTION",
		ActorID:     tx.RecipientID.String(),
		ActorName:   recipient.FullName,
		ActorAvatar: recipient.ProfilePicture,
	})

	content := fmt.Sprintf("MASS TIP: %s sent %s to %s", sender.FullName, amount, recipient.FullName)
	if message != "" {
		content += fmt.Sprintf(" \"%s\"", message)
	}
	content += fmt.Sprintf(" (Tx #%s)", tx.ID)

	d.enqueue(ctx, events.ChatQueue, "chat", events.ChatEvent{
		SenderID:      tx.SenderID.String(),
		RecipientID:   tx.RecipientID.String(),
		Content:       content,
		TransactionID: tx.ID.String(),
		Timestamp:     time.Now().UTC(),
	})
}

func (d *Dispatcher) Rewarded(ctx context.Context, tx models.Transaction, reason string) {
	d.notify(ctx, events.NotificationEvent{
		UserID:      tx.RecipientID.String(),
		Title:       "Mass Coin Reward",
		Body:        fmt.Sprintf("You received %s as a reward: %s", domain.FormatAmount(tx.AmountMicros), reason),
		Type:        events.NotificationReceived,
		RelatedID:   tx.ID.String(),
		RelatedType: "MASS_COIN_TRANSACTION",
		ActorName:   "System",
	})
}

func (d *Dispatcher) WithdrawalRequested(ctx context.Context, wr models.WithdrawalRequest) {
	d.notify(ctx, events.NotificationEvent{
		UserID:      wr.UserID.String(),
		Title:       "Withdrawal Requested",
		Body:        fmt.Sprintf("Your withdrawal of %s is pending.", domain.FormatAmount(wr.AmountMicros)),
		Type:        events.NotificationSent,
		RelatedID:   wr.ID.String(),
		RelatedType: "MASS_COIN_WITHDRAWAL",
		ActorName:   "System",
	})
}

func (d *Dispatcher) notify(ctx context.Context, event events.NotificationEvent) {
	event.Timestamp = time.Now().UTC()
	d.enqueue(ctx, events.NotificationQueue, "notification", event)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, kind string, payload any) {
	if d.queue == nil {
		return
	}
	if err := d.queue.Enqueue(ctx, queue, payload); err != nil {
		observability.IncrementSideEffectFailure(kind)
		zap.L().Warn("side effect dispatch failed", zap.String("queue", queue), zap.Error(err))
	}
}

// lookupUser resolves display data for notifications. Best effort only: a
// missing user must not fail the dispatch.
func (d *Dispatcher) lookupUser(ctx context.Context, id uuid.UUID) models.User {
	user, err := d.store.Queries().GetUser(ctx, id)
	if err != nil {
		zap.L().Warn("notification user lookup failed", zap.String("user_id", id.String()), zap.Error(err))
		return models.User{ID: id, FullName: "A MasChat user"}
	}
	return user
}
