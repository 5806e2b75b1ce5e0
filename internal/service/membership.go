package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/thangnstse171771/cakestory-messaging/internal/directory"
	"github.com/thangnstse171771/cakestory-messaging/internal/events"
	"github.com/thangnstse171771/cakestory-messaging/internal/models"
	"github.com/thangnstse171771/cakestory-messaging/internal/repository"
)

// MembershipService maintains the participant list of shop group
// conversations as a projection of the primary store's shop membership.
// The primary store decides who is a shop member; this side only follows.
type MembershipService struct {
	convs  repository.ConversationRepository
	dir    *directory.Directory
	writer *InboxWriter
	pub    events.Publisher
	log    *zap.SugaredLogger
}

func NewMembershipService(
	convs repository.ConversationRepository,
	dir *directory.Directory,
	writer *InboxWriter,
	pub events.Publisher,
	log *zap.SugaredLogger,
) *MembershipService {
	return &MembershipService{convs: convs, dir: dir, writer: writer, pub: pub, log: log}
}

// AddMember appends the member to the conversation's participant list
// and fans out to the new member only; existing members' entries are
// untouched.
func (s *MembershipService) AddMember(ctx context.Context, conversationID string, memberAccountID int64, role models.Role) error {
	mid, err := s.dir.ResolveMessagingID(ctx, memberAccountID)
	if err != nil {
		return err
	}
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.convs.AddParticipant(ctx, conversationID, mid, role == models.RoleShopMember); err != nil {
		return err
	}
	if err := s.writer.UpsertEntry(ctx, mid, models.InboxEntry{
		ConversationID: conversationID,
		Role:           role,
		LastMessage:    conv.LastMessage,
	}); err != nil {
		danglingRemovals.Inc()
		return fmt.Errorf("member added without inbox entry: %w", err)
	}
	s.publish(ctx, events.Event{
		Type:           events.TypeMemberAdded,
		ConversationID: conversationID,
		ShopID:         conv.ShopID,
		Members:        []string{mid},
	})
	return nil
}

// RemoveMember retracts the member from the shop's conversation and
// deletes their inbox entry. Call only after the member is gone from the
// authoritative membership source. Best-effort: a failure between the
// two writes leaves a dangling reference for the reconciler.
func (s *MembershipService) RemoveMember(ctx context.Context, shopID int64, memberMessagingID string) error {
	conv, err := s.convs.FindByDedupKey(ctx, models.ShopDedupKey(shopID))
	if err != nil {
		return fmt.Errorf("locate shop %d conversation: %w", shopID, err)
	}
	if err := s.convs.RemoveParticipant(ctx, conv.ID, memberMessagingID); err != nil {
		return err
	}
	if err := s.writer.inboxes.Remove(ctx, memberMessagingID, conv.ID); err != nil {
		danglingRemovals.Inc()
		s.log.Errorw("inbox retraction failed after participant removal",
			"owner", memberMessagingID, "conversation", conv.ID, "err", err)
		return fmt.Errorf("retract inbox entry: %w", err)
	}
	s.publish(ctx, events.Event{
		Type:           events.TypeMemberRemoved,
		ConversationID: conv.ID,
		ShopID:         shopID,
		Members:        []string{memberMessagingID},
	})
	return nil
}

func (s *MembershipService) publish(ctx context.Context, ev events.Event) {
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Errorw("event publish failed", "type", ev.Type, "conversation", ev.ConversationID, "err", err)
	}
}
