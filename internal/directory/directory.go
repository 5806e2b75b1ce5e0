// Package directory maps primary-store numeric account IDs to the
// messaging identities keying every chat-related document. The two ID
// domains are never unified; callers resolve here before any store
// operation that filters or writes by identity.
package directory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/thangnstse171771/cakestory-messaging/internal/models"
	"github.com/thangnstse171771/cakestory-messaging/internal/repository"
)

type Directory struct {
	accounts repository.AccountRepository
	cache    Cache
	log      *zap.SugaredLogger
}

func New(accounts repository.AccountRepository, cache Cache, log *zap.SugaredLogger) *Directory {
	return &Directory{accounts: accounts, cache: cache, log: log}
}

// ResolveMessagingID returns the messaging identity for an internal
// account ID. Cache misses fall through to the account store; a cache
// failure is logged and degrades to a store read, never an error.
func (d *Directory) ResolveMessagingID(ctx context.Context, accountID int64) (string, error) {
	if id, ok, err := d.cache.Get(ctx, accountID); err != nil {
		d.log.Warnw("identity cache read failed", "account_id", accountID, "err", err)
	} else if ok {
		return id, nil
	}

	a, err := d.accounts.FindByAccountID(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("resolve account %d: %w", accountID, err)
	}
	if err := d.cache.Set(ctx, accountID, a.MessagingID); err != nil {
		d.log.Warnw("identity cache write failed", "account_id", accountID, "err", err)
	}
	return a.MessagingID, nil
}

// ResolveMany resolves a batch of internal IDs, deduplicating repeats.
// Any unresolved ID fails the whole batch so callers never proceed with
// a partial participant set.
func (d *Directory) ResolveMany(ctx context.Context, accountIDs []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(accountIDs))
	for _, id := range accountIDs {
		if _, done := out[id]; done {
			continue
		}
		mid, err := d.ResolveMessagingID(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = mid
	}
	return out, nil
}

// Invalidate drops the cached mapping, typically on account deactivation.
func (d *Directory) Invalidate(ctx context.Context, accountID int64) error {
	return d.cache.Del(ctx, accountID)
}

// Provision assigns a messaging identity to an account that has none
// yet. Identities are created lazily on first messaging contact and are
// immutable afterwards; a concurrent provision loses the insert race and
// reads back the winner's document.
func (d *Directory) Provision(ctx context.Context, accountID int64, displayName, avatarURL string) (*models.Account, error) {
	if a, err := d.accounts.FindByAccountID(ctx, accountID); err == nil {
		return a, nil
	} else if err != repository.ErrNotFound {
		return nil, err
	}

	a := &models.Account{
		AccountID:   accountID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		Active:      true,
	}
	err := d.accounts.Create(ctx, a)
	if err == repository.ErrConflict {
		return d.accounts.FindByAccountID(ctx, accountID)
	}
	if err != nil {
		return nil, err
	}
	if err := d.cache.Set(ctx, accountID, a.MessagingID); err != nil {
		d.log.Warnw("identity cache write failed", "account_id", accountID, "err", err)
	}
	return a, nil
}
