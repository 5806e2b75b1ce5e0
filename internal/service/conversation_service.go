package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/thangnstse171771/cakestory-messaging/internal/directory"
	"github.com/thangnstse171771/cakestory-messaging/internal/events"
	"github.com/thangnstse171771/cakestory-messaging/internal/models"
	"github.com/thangnstse171771/cakestory-messaging/internal/repository"
)

var ErrSelfConversation = errors.New("direct conversation requires two distinct accounts")

// ConversationService is the conversation registry: it creates and
// deduplicates conversations and drives the inbox fan-out. Dedup is
// enforced by the store's uniqueness constraint on the dedup key, not by
// lookup-before-create, so concurrent first contacts resolve to a single
// document.
type ConversationService struct {
	convs    repository.ConversationRepository
	accounts repository.AccountRepository
	dir      *directory.Directory
	writer   *InboxWriter
	pub      events.Publisher
	log      *zap.SugaredLogger
}

func NewConversationService(
	convs repository.ConversationRepository,
	accounts repository.AccountRepository,
	dir *directory.Directory,
	writer *InboxWriter,
	pub events.Publisher,
	log *zap.SugaredLogger,
) *ConversationService {
	return &ConversationService{
		convs:    convs,
		accounts: accounts,
		dir:      dir,
		writer:   writer,
		pub:      pub,
		log:      log,
	}
}

type ShopConversationInput struct {
	ShopID            int64
	ShopName          string
	ShopAvatar        string
	CustomerAccountID int64
	StaffAccountIDs   []int64
}

// GetOrCreateShopConversation returns the shop's group conversation,
// creating it on first contact. Identity resolution runs for every
// required participant before any write; an existing conversation is
// returned without touching other members' inboxes, though a customer
// seeing the shop for the first time is joined and fanned out to.
func (s *ConversationService) GetOrCreateShopConversation(ctx context.Context, in ShopConversationInput) (*models.Conversation, error) {
	customerID, err := s.dir.ResolveMessagingID(ctx, in.CustomerAccountID)
	if err != nil {
		return nil, err
	}
	staff, err := s.dir.ResolveMany(ctx, in.StaffAccountIDs)
	if err != nil {
		return nil, err
	}
	staffIDs := make([]string, 0, len(staff))
	for _, id := range in.StaffAccountIDs {
		if mid := staff[id]; mid != customerID && !contains(staffIDs, mid) {
			staffIDs = append(staffIDs, mid)
		}
	}

	key := models.ShopDedupKey(in.ShopID)
	if existing, err := s.convs.FindByDedupKey(ctx, key); err == nil {
		return s.joinExistingShopConversation(ctx, existing, customerID)
	} else if err != repository.ErrNotFound {
		return nil, err
	}

	conv := &models.Conversation{
		Kind:         models.KindShopGroup,
		DedupKey:     key,
		ShopID:       in.ShopID,
		ShopName:     in.ShopName,
		ShopAvatar:   in.ShopAvatar,
		CustomerID:   customerID,
		StaffIDs:     staffIDs,
		Participants: append([]string{customerID}, staffIDs...),
	}
	err = s.convs.Create(ctx, conv)
	if err == repository.ErrConflict {
		// Lost the first-contact race; the unique index guarantees a
		// single winner whose document we adopt.
		dedupConflicts.Inc()
		s.log.Infow("shop conversation create lost dedup race", "shop_id", in.ShopID)
		existing, ferr := s.convs.FindByDedupKey(ctx, key)
		if ferr != nil {
			return nil, fmt.Errorf("resolve dedup conflict for shop %d: %w", in.ShopID, ferr)
		}
		return s.joinExistingShopConversation(ctx, existing, customerID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.writer.FanOut(ctx, conv); err != nil {
		return conv, err
	}
	s.publish(ctx, events.Event{
		Type:           events.TypeConversationCreated,
		ConversationID: conv.ID,
		ShopID:         conv.ShopID,
		Members:        conv.Participants,
	})
	return conv, nil
}

// joinExistingShopConversation handles the dedup hit. Existing members'
// entries are untouched; a customer not yet in the conversation is added
// with a single-member fan-out.
func (s *ConversationService) joinExistingShopConversation(ctx context.Context, conv *models.Conversation, customerID string) (*models.Conversation, error) {
	if conv.HasParticipant(customerID) {
		return conv, nil
	}
	if err := s.convs.AddParticipant(ctx, conv.ID, customerID, false); err != nil {
		return nil, err
	}
	conv.Participants = append(conv.Participants, customerID)
	if err := s.writer.UpsertEntry(ctx, customerID, models.InboxEntry{
		ConversationID: conv.ID,
		Role:           models.RoleCustomer,
		LastMessage:    conv.LastMessage,
	}); err != nil {
		return conv, err
	}
	s.publish(ctx, events.Event{
		Type:           events.TypeMemberAdded,
		ConversationID: conv.ID,
		ShopID:         conv.ShopID,
		Members:        []string{customerID},
	})
	return conv, nil
}

// GetOrCreateDirectConversation returns the one conversation for an
// unordered pair of accounts, creating it on first contact.
func (s *ConversationService) GetOrCreateDirectConversation(ctx context.Context, accountA, accountB int64) (*models.Conversation, error) {
	ids, err := s.dir.ResolveMany(ctx, []int64{accountA, accountB})
	if err != nil {
		return nil, err
	}
	a, b := ids[accountA], ids[accountB]
	if a == b {
		return nil, ErrSelfConversation
	}

	key := models.DirectDedupKey(a, b)
	if existing, err := s.convs.FindByDedupKey(ctx, key); err == nil {
		return existing, nil
	} else if err != repository.ErrNotFound {
		return nil, err
	}

	conv := &models.Conversation{
		Kind:         models.KindDirect,
		DedupKey:     key,
		Participants: []string{a, b},
	}
	err = s.convs.Create(ctx, conv)
	if err == repository.ErrConflict {
		dedupConflicts.Inc()
		return s.convs.FindByDedupKey(ctx, key)
	}
	if err != nil {
		return nil, err
	}

	if err := s.writer.FanOut(ctx, conv); err != nil {
		return conv, err
	}
	s.publish(ctx, events.Event{
		Type:           events.TypeConversationCreated,
		ConversationID: conv.ID,
		Members:        conv.Participants,
	})
	return conv, nil
}

// ConversationSummary is one row of an account's conversation list,
// augmented with shop metadata so the UI renders without per-row fetches.
type ConversationSummary struct {
	ConversationID string                  `json:"conversation_id"`
	Kind           models.ConversationKind `json:"kind"`
	Title          string                  `json:"title,omitempty"`
	Avatar         string                  `json:"avatar,omitempty"`
	Role           models.Role             `json:"role,omitempty"`
	Participants   []string                `json:"participants"`
	LastMessage    *models.MessageSnapshot `json:"last_message,omitempty"`
	Seen           bool                    `json:"seen"`
}

// ListConversationsForAccount reads the owner's inbox and batch-fetches
// the referenced conversations. Entries whose conversation is gone or no
// longer lists the owner are read-repaired: dropped from the result and
// retracted from the container.
func (s *ConversationService) ListConversationsForAccount(ctx context.Context, messagingID string) ([]ConversationSummary, error) {
	inbox, err := s.inboxOf(ctx, messagingID)
	if err != nil {
		return nil, err
	}
	if inbox == nil || len(inbox.Entries) == 0 {
		return []ConversationSummary{}, nil
	}

	ids := make([]string, 0, len(inbox.Entries))
	for _, e := range inbox.Entries {
		ids = append(ids, e.ConversationID)
	}
	convs, err := s.convs.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Conversation, len(convs))
	for _, c := range convs {
		byID[c.ID] = c
	}

	out := make([]ConversationSummary, 0, len(inbox.Entries))
	for _, e := range inbox.Entries {
		conv, ok := byID[e.ConversationID]
		if !ok || !conv.HasParticipant(messagingID) {
			reconcileRepairs.Inc()
			s.log.Warnw("dropping stale inbox entry",
				"owner", messagingID, "conversation", e.ConversationID)
			if rerr := s.writer.inboxes.Remove(ctx, messagingID, e.ConversationID); rerr != nil {
				s.log.Warnw("stale entry retraction failed",
					"owner", messagingID, "conversation", e.ConversationID, "err", rerr)
			}
			continue
		}
		sum := ConversationSummary{
			ConversationID: conv.ID,
			Kind:           conv.Kind,
			Role:           e.Role,
			Participants:   conv.Participants,
			LastMessage:    e.LastMessage,
			Seen:           e.Seen,
		}
		if conv.Kind == models.KindShopGroup {
			sum.Title = conv.ShopName
			sum.Avatar = conv.ShopAvatar
		}
		if sum.LastMessage == nil {
			sum.LastMessage = conv.LastMessage
		}
		out = append(out, sum)
	}
	return out, nil
}

// BlockStateFor loads both accounts and resolves the directional block
// state between them.
func (s *ConversationService) BlockStateFor(ctx context.Context, viewerMessagingID, otherMessagingID string) (BlockState, error) {
	viewer, err := s.accounts.GetByID(ctx, viewerMessagingID)
	if err != nil {
		return BlockState{}, fmt.Errorf("load viewer: %w", err)
	}
	other, err := s.accounts.GetByID(ctx, otherMessagingID)
	if err != nil {
		return BlockState{}, fmt.Errorf("load other: %w", err)
	}
	return ResolveBlockState(viewer, other), nil
}

// RecordMessage updates the denormalized last-message snapshot on the
// conversation and every participant's inbox entry. Delivery of the
// message itself happens elsewhere; this only keeps list rendering fresh.
func (s *ConversationService) RecordMessage(ctx context.Context, conversationID string, snap models.MessageSnapshot) error {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.convs.SetLastMessage(ctx, conversationID, snap); err != nil {
		return err
	}
	for _, owner := range conv.Participants {
		if err := s.writer.inboxes.SetLastMessage(ctx, owner, conversationID, snap); err != nil {
			s.log.Warnw("snapshot propagation failed",
				"owner", owner, "conversation", conversationID, "err", err)
		}
	}
	return nil
}

func (s *ConversationService) MarkSeen(ctx context.Context, messagingID, conversationID string) error {
	return s.writer.inboxes.SetSeen(ctx, messagingID, conversationID, true)
}

func (s *ConversationService) inboxOf(ctx context.Context, ownerID string) (*models.Inbox, error) {
	inbox, err := s.writer.inboxes.Get(ctx, ownerID)
	if err == repository.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inbox, nil
}

func (s *ConversationService) publish(ctx context.Context, ev events.Event) {
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Errorw("event publish failed", "type", ev.Type, "conversation", ev.ConversationID, "err", err)
	}
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
