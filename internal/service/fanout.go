package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/thangnstse171771/cakestory-messaging/internal/models"
	"github.com/thangnstse171771/cakestory-messaging/internal/repository"
)

// InboxWriter performs the per-participant denormalized writes that make
// each account's conversation list a single lookup. A fan-out to N
// participants is N independent writes with no cross-document atomicity;
// transient store errors are retried with bounded backoff, and anything
// still failing is logged, counted, and surfaced so the caller can run
// re-fan-out later.
type InboxWriter struct {
	inboxes    repository.InboxRepository
	log        *zap.SugaredLogger
	maxElapsed time.Duration
}

func NewInboxWriter(inboxes repository.InboxRepository, log *zap.SugaredLogger) *InboxWriter {
	return &InboxWriter{inboxes: inboxes, log: log, maxElapsed: 5 * time.Second}
}

// UpsertEntry writes one owner's entry. Idempotent under retry: the
// repository deduplicates on conversation ID, so re-invoking with the
// same (conversation, owner) pair never produces a second entry.
func (w *InboxWriter) UpsertEntry(ctx context.Context, ownerID string, entry models.InboxEntry) error {
	op := func() error {
		_, err := w.inboxes.Upsert(ctx, ownerID, entry)
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = w.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		fanoutFailures.Inc()
		w.log.Errorw("inbox upsert failed",
			"owner", ownerID, "conversation", entry.ConversationID, "err", err)
		return fmt.Errorf("inbox upsert for %s: %w", ownerID, err)
	}
	return nil
}

// FanOut writes an entry for every participant of the conversation.
// Per-owner failures do not stop the loop; the aggregated error names the
// owners that were left without an entry.
func (w *InboxWriter) FanOut(ctx context.Context, conv *models.Conversation) error {
	var (
		failed  []string
		lastErr error
	)
	for _, owner := range conv.Participants {
		if err := w.UpsertEntry(ctx, owner, inboxEntryFor(conv, owner)); err != nil {
			failed = append(failed, owner)
			lastErr = err
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("fan-out incomplete, owners %v: %w", failed, lastErr)
	}
	return nil
}

func inboxEntryFor(conv *models.Conversation, owner string) models.InboxEntry {
	return models.InboxEntry{
		ConversationID: conv.ID,
		Role:           RoleIn(conv, owner),
		LastMessage:    conv.LastMessage,
	}
}

// RoleIn derives a participant's role within a conversation. Roles only
// carry meaning for shop groups; direct chats have none.
func RoleIn(conv *models.Conversation, messagingID string) models.Role {
	if conv.Kind != models.KindShopGroup {
		return ""
	}
	for _, s := range conv.StaffIDs {
		if s == messagingID {
			return models.RoleShopMember
		}
	}
	return models.RoleCustomer
}
