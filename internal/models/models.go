package models

import (
	"fmt"
	"time"
)

type ConversationKind string

const (
	KindDirect    ConversationKind = "direct"
	KindShopGroup ConversationKind = "shop-group"
)

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleShopMember Role = "shop-member"
)

// Account is the messaging-side projection of a registered user. The
// document ID (MessagingID) is the identity used for every chat-related
// record; AccountID is the numeric ID owned by the primary store.
type Account struct {
	MessagingID string    `bson:"_id,omitempty" json:"messaging_id"`
	AccountID   int64     `bson:"account_id" json:"account_id"`
	DisplayName string    `bson:"display_name" json:"display_name"`
	AvatarURL   string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Blocked     []string  `bson:"blocked,omitempty" json:"blocked,omitempty"`
	Active      bool      `bson:"active" json:"active"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// HasBlocked reports whether this account's block list contains the
// given messaging identity. Blocking is directional.
func (a *Account) HasBlocked(messagingID string) bool {
	for _, id := range a.Blocked {
		if id == messagingID {
			return true
		}
	}
	return false
}

// MessageSnapshot is the denormalized last-message preview carried on
// conversations and inbox entries for list rendering.
type MessageSnapshot struct {
	Text   string    `bson:"text" json:"text"`
	SentAt time.Time `bson:"sent_at" json:"sent_at"`
}

type Conversation struct {
	ID   string           `bson:"_id,omitempty" json:"id"`
	Kind ConversationKind `bson:"kind" json:"kind"`
	// DedupKey is unique across non-deleted conversations:
	// "shop:<shopID>" for shop groups, "direct:<min>:<max>" for direct.
	DedupKey     string           `bson:"dedup_key" json:"-"`
	ShopID       int64            `bson:"shop_id,omitempty" json:"shop_id,omitempty"`
	ShopName     string           `bson:"shop_name,omitempty" json:"shop_name,omitempty"`
	ShopAvatar   string           `bson:"shop_avatar,omitempty" json:"shop_avatar,omitempty"`
	CustomerID   string           `bson:"customer_id,omitempty" json:"customer_id,omitempty"`
	StaffIDs     []string         `bson:"staff_ids,omitempty" json:"staff_ids,omitempty"`
	Participants []string         `bson:"participants" json:"participants"`
	LastMessage  *MessageSnapshot `bson:"last_message,omitempty" json:"last_message,omitempty"`
	CreatedAt    time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `bson:"updated_at" json:"updated_at"`
}

func (c *Conversation) HasParticipant(messagingID string) bool {
	for _, id := range c.Participants {
		if id == messagingID {
			return true
		}
	}
	return false
}

// ShopDedupKey builds the uniqueness key for a shop-group conversation.
func ShopDedupKey(shopID int64) string {
	return fmt.Sprintf("shop:%d", shopID)
}

// DirectDedupKey builds the uniqueness key for a direct conversation.
// The pair is canonicalized so the key is order-independent.
func DirectDedupKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("direct:%s:%s", a, b)
}

// InboxEntry is one denormalized row in an account's conversation list.
type InboxEntry struct {
	ConversationID string           `bson:"conversation_id" json:"conversation_id"`
	Role           Role             `bson:"role" json:"role"`
	LastMessage    *MessageSnapshot `bson:"last_message,omitempty" json:"last_message,omitempty"`
	Seen           bool             `bson:"seen" json:"seen"`
	CreatedAt      time.Time        `bson:"created_at" json:"created_at"`
}

// Inbox is the per-account container holding all of that account's
// entries, so a conversation list is a single lookup by owner.
type Inbox struct {
	OwnerID   string       `bson:"_id" json:"owner_id"`
	Entries   []InboxEntry `bson:"entries" json:"entries"`
	UpdatedAt time.Time    `bson:"updated_at" json:"updated_at"`
}
