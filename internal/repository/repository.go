package repository

import (
	"context"
	"errors"

	"github.com/thangnstse171771/cakestory-messaging/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a create would violate a uniqueness
	// constraint (duplicate dedup key, duplicate inbox container).
	ErrConflict = errors.New("already exists")
)

type AccountRepository interface {
	Create(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, messagingID string) (*models.Account, error)
	// FindByAccountID looks up the account whose primary-store numeric
	// ID equals the given value.
	FindByAccountID(ctx context.Context, accountID int64) (*models.Account, error)
	SetActive(ctx context.Context, messagingID string, active bool) error
	AddBlock(ctx context.Context, messagingID, blockedID string) error
	RemoveBlock(ctx context.Context, messagingID, blockedID string) error
}

type ConversationRepository interface {
	// Create inserts the conversation; ErrConflict when a non-deleted
	// conversation with the same dedup key already exists.
	Create(ctx context.Context, c *models.Conversation) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	FindByDedupKey(ctx context.Context, key string) (*models.Conversation, error)
	GetMany(ctx context.Context, ids []string) ([]*models.Conversation, error)
	ListForParticipant(ctx context.Context, messagingID string) ([]*models.Conversation, error)
	AddParticipant(ctx context.Context, id, memberID string, asStaff bool) error
	RemoveParticipant(ctx context.Context, id, memberID string) error
	SetLastMessage(ctx context.Context, id string, snap models.MessageSnapshot) error
}

type InboxRepository interface {
	// Upsert adds the entry to the owner's container, creating the
	// container when absent. It reports whether a new entry was written;
	// an existing entry for the same conversation is left untouched.
	Upsert(ctx context.Context, ownerID string, entry models.InboxEntry) (bool, error)
	Get(ctx context.Context, ownerID string) (*models.Inbox, error)
	Remove(ctx context.Context, ownerID, conversationID string) error
	SetSeen(ctx context.Context, ownerID, conversationID string, seen bool) error
	SetLastMessage(ctx context.Context, ownerID, conversationID string, snap models.MessageSnapshot) error
}
