package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/thangnstse171771/cakestory-messaging/internal/repository"
)

// Reconciler heals the invariants the non-transactional writes cannot
// guarantee: every participant holds exactly one inbox entry per
// conversation, and no entry outlives its membership. It is callable
// on demand (admin API) and piecewise from the list path.
type Reconciler struct {
	convs   repository.ConversationRepository
	inboxes repository.InboxRepository
	log     *zap.SugaredLogger
}

func NewReconciler(convs repository.ConversationRepository, inboxes repository.InboxRepository, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{convs: convs, inboxes: inboxes, log: log}
}

// ReconcileInbox drops every entry in the owner's container whose
// conversation no longer exists or no longer lists the owner. Returns
// the number of entries removed.
func (r *Reconciler) ReconcileInbox(ctx context.Context, ownerID string) (int, error) {
	inbox, err := r.inboxes.Get(ctx, ownerID)
	if err == repository.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range inbox.Entries {
		conv, err := r.convs.GetByID(ctx, e.ConversationID)
		switch {
		case err == repository.ErrNotFound:
		case err != nil:
			return removed, err
		case conv.HasParticipant(ownerID):
			continue
		}
		if err := r.inboxes.Remove(ctx, ownerID, e.ConversationID); err != nil {
			return removed, fmt.Errorf("retract stale entry %s: %w", e.ConversationID, err)
		}
		reconcileRepairs.Inc()
		r.log.Infow("stale inbox entry retracted", "owner", ownerID, "conversation", e.ConversationID)
		removed++
	}
	return removed, nil
}

// ReFanout re-runs the inbox fan-out for every current participant of a
// conversation, restoring entries lost to a partial fan-out. Existing
// entries are untouched (the upsert is idempotent). Returns the number
// of entries restored.
func (r *Reconciler) ReFanout(ctx context.Context, conversationID string) (int, error) {
	conv, err := r.convs.GetByID(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, owner := range conv.Participants {
		inserted, err := r.inboxes.Upsert(ctx, owner, inboxEntryFor(conv, owner))
		if err != nil {
			return restored, fmt.Errorf("re-fan-out for %s: %w", owner, err)
		}
		if inserted {
			reconcileRepairs.Inc()
			r.log.Infow("missing inbox entry restored", "owner", owner, "conversation", conversationID)
			restored++
		}
	}
	return restored, nil
}
