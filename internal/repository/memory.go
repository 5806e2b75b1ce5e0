package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thangnstse171771/cakestory-messaging/internal/models"
)

// In-memory implementations backing tests and local development. They
// enforce the same uniqueness rules as the Mongo repositories so service
// behavior (dedup on create, idempotent inbox writes) is identical.

type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]*models.Account)}
}

func (r *MemoryAccountRepository) Create(_ context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.MessagingID == "" {
		a.MessagingID = uuid.NewString()
	}
	if _, ok := r.accounts[a.MessagingID]; ok {
		return ErrConflict
	}
	for _, other := range r.accounts {
		if other.AccountID == a.AccountID {
			return ErrConflict
		}
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	cp := *a
	r.accounts[a.MessagingID] = &cp
	return nil
}

func (r *MemoryAccountRepository) GetByID(_ context.Context, messagingID string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[messagingID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryAccountRepository) FindByAccountID(_ context.Context, accountID int64) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.AccountID == accountID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryAccountRepository) SetActive(_ context.Context, messagingID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[messagingID]
	if !ok {
		return ErrNotFound
	}
	a.Active = active
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryAccountRepository) AddBlock(_ context.Context, messagingID, blockedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[messagingID]
	if !ok {
		return ErrNotFound
	}
	for _, id := range a.Blocked {
		if id == blockedID {
			return nil
		}
	}
	a.Blocked = append(a.Blocked, blockedID)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryAccountRepository) RemoveBlock(_ context.Context, messagingID, blockedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[messagingID]
	if !ok {
		return ErrNotFound
	}
	out := a.Blocked[:0]
	for _, id := range a.Blocked {
		if id != blockedID {
			out = append(out, id)
		}
	}
	a.Blocked = out
	a.UpdatedAt = time.Now().UTC()
	return nil
}

type MemoryConversationRepository struct {
	mu      sync.RWMutex
	convs   map[string]*models.Conversation
	byDedup map[string]string // dedup key -> conversation ID
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		convs:   make(map[string]*models.Conversation),
		byDedup: make(map[string]string),
	}
}

func (r *MemoryConversationRepository) Create(_ context.Context, c *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byDedup[c.DedupKey]; ok {
		return ErrConflict
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.StaffIDs = append([]string(nil), c.StaffIDs...)
	r.convs[c.ID] = &cp
	r.byDedup[c.DedupKey] = c.ID
	return nil
}

func (r *MemoryConversationRepository) GetByID(_ context.Context, id string) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyConversation(c), nil
}

func (r *MemoryConversationRepository) FindByDedupKey(_ context.Context, key string) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byDedup[key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyConversation(r.convs[id]), nil
}

func (r *MemoryConversationRepository) GetMany(_ context.Context, ids []string) ([]*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Conversation
	for _, id := range ids {
		if c, ok := r.convs[id]; ok {
			out = append(out, copyConversation(c))
		}
	}
	return out, nil
}

func (r *MemoryConversationRepository) ListForParticipant(_ context.Context, messagingID string) ([]*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Conversation
	for _, c := range r.convs {
		if c.HasParticipant(messagingID) {
			out = append(out, copyConversation(c))
		}
	}
	return out, nil
}

func (r *MemoryConversationRepository) AddParticipant(_ context.Context, id, memberID string, asStaff bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return ErrNotFound
	}
	if !c.HasParticipant(memberID) {
		c.Participants = append(c.Participants, memberID)
	}
	if asStaff {
		found := false
		for _, s := range c.StaffIDs {
			if s == memberID {
				found = true
				break
			}
		}
		if !found {
			c.StaffIDs = append(c.StaffIDs, memberID)
		}
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryConversationRepository) RemoveParticipant(_ context.Context, id, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return ErrNotFound
	}
	c.Participants = removeString(c.Participants, memberID)
	c.StaffIDs = removeString(c.StaffIDs, memberID)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryConversationRepository) SetLastMessage(_ context.Context, id string, snap models.MessageSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return ErrNotFound
	}
	cp := snap
	c.LastMessage = &cp
	c.UpdatedAt = time.Now().UTC()
	return nil
}

type MemoryInboxRepository struct {
	mu      sync.RWMutex
	inboxes map[string]*models.Inbox
}

func NewMemoryInboxRepository() *MemoryInboxRepository {
	return &MemoryInboxRepository{inboxes: make(map[string]*models.Inbox)}
}

func (r *MemoryInboxRepository) Upsert(_ context.Context, ownerID string, entry models.InboxEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	in, ok := r.inboxes[ownerID]
	if !ok {
		in = &models.Inbox{OwnerID: ownerID}
		r.inboxes[ownerID] = in
	}
	for _, e := range in.Entries {
		if e.ConversationID == entry.ConversationID {
			return false, nil
		}
	}
	in.Entries = append(in.Entries, entry)
	in.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryInboxRepository) Get(_ context.Context, ownerID string) (*models.Inbox, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.inboxes[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := models.Inbox{OwnerID: in.OwnerID, UpdatedAt: in.UpdatedAt}
	cp.Entries = append([]models.InboxEntry(nil), in.Entries...)
	return &cp, nil
}

func (r *MemoryInboxRepository) Remove(_ context.Context, ownerID, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.inboxes[ownerID]
	if !ok {
		return nil
	}
	out := in.Entries[:0]
	for _, e := range in.Entries {
		if e.ConversationID != conversationID {
			out = append(out, e)
		}
	}
	in.Entries = out
	in.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryInboxRepository) SetSeen(_ context.Context, ownerID, conversationID string, seen bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.inboxes[ownerID]
	if !ok {
		return ErrNotFound
	}
	for i := range in.Entries {
		if in.Entries[i].ConversationID == conversationID {
			in.Entries[i].Seen = seen
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryInboxRepository) SetLastMessage(_ context.Context, ownerID, conversationID string, snap models.MessageSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.inboxes[ownerID]
	if !ok {
		return ErrNotFound
	}
	for i := range in.Entries {
		if in.Entries[i].ConversationID == conversationID {
			cp := snap
			in.Entries[i].LastMessage = &cp
			in.Entries[i].Seen = false
			return nil
		}
	}
	return ErrNotFound
}

func copyConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.StaffIDs = append([]string(nil), c.StaffIDs...)
	if c.LastMessage != nil {
		snap := *c.LastMessage
		cp.LastMessage = &snap
	}
	return &cp
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
