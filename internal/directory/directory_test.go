package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thangnstse171771/cakestory-messaging/internal/directory"
	"github.com/thangnstse171771/cakestory-messaging/internal/logger"
	"github.com/thangnstse171771/cakestory-messaging/internal/models"
	"github.com/thangnstse171771/cakestory-messaging/internal/repository"
)

// countingAccountRepo wraps the in-memory repo to count store reads, so
// cache behavior is observable.
type countingAccountRepo struct {
	*repository.MemoryAccountRepository
	finds int
}

func (r *countingAccountRepo) FindByAccountID(ctx context.Context, accountID int64) (*models.Account, error) {
	r.finds++
	return r.MemoryAccountRepository.FindByAccountID(ctx, accountID)
}

func TestResolveMessagingID(t *testing.T) {
	ctx := context.Background()
	accounts := &countingAccountRepo{MemoryAccountRepository: repository.NewMemoryAccountRepository()}
	dir := directory.New(accounts, directory.NewMemoryCache(), logger.Nop())

	a := &models.Account{AccountID: 42, DisplayName: "Ana", Active: true}
	require.NoError(t, accounts.Create(ctx, a))

	t.Run("MissReadsStoreThenCaches", func(t *testing.T) {
		got, err := dir.ResolveMessagingID(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, a.MessagingID, got)
		assert.Equal(t, 1, accounts.finds)

		got, err = dir.ResolveMessagingID(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, a.MessagingID, got)
		assert.Equal(t, 1, accounts.finds, "second resolve must be served from cache")
	})

	t.Run("InvalidateForcesReRead", func(t *testing.T) {
		require.NoError(t, dir.Invalidate(ctx, 42))
		_, err := dir.ResolveMessagingID(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, 2, accounts.finds)
	})

	t.Run("UnknownAccountIsNotFound", func(t *testing.T) {
		_, err := dir.ResolveMessagingID(ctx, 7)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestResolveMany(t *testing.T) {
	ctx := context.Background()
	accounts := &countingAccountRepo{MemoryAccountRepository: repository.NewMemoryAccountRepository()}
	dir := directory.New(accounts, directory.NewMemoryCache(), logger.Nop())

	a := &models.Account{AccountID: 1, DisplayName: "A", Active: true}
	b := &models.Account{AccountID: 2, DisplayName: "B", Active: true}
	require.NoError(t, accounts.Create(ctx, a))
	require.NoError(t, accounts.Create(ctx, b))

	t.Run("DeduplicatesRepeats", func(t *testing.T) {
		got, err := dir.ResolveMany(ctx, []int64{1, 2, 1, 2, 1})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, a.MessagingID, got[1])
		assert.Equal(t, b.MessagingID, got[2])
		assert.Equal(t, 2, accounts.finds)
	})

	t.Run("AnyMissFailsTheBatch", func(t *testing.T) {
		_, err := dir.ResolveMany(ctx, []int64{1, 99})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestProvision(t *testing.T) {
	ctx := context.Background()
	accounts := repository.NewMemoryAccountRepository()
	dir := directory.New(accounts, directory.NewMemoryCache(), logger.Nop())

	t.Run("AssignsIdentityOnce", func(t *testing.T) {
		first, err := dir.Provision(ctx, 7, "Bea", "")
		require.NoError(t, err)
		require.NotEmpty(t, first.MessagingID)

		second, err := dir.Provision(ctx, 7, "Bea", "")
		require.NoError(t, err)
		assert.Equal(t, first.MessagingID, second.MessagingID, "identity is immutable once assigned")
	})

	t.Run("ResolvableAfterProvision", func(t *testing.T) {
		a, err := dir.Provision(ctx, 8, "Cam", "")
		require.NoError(t, err)
		got, err := dir.ResolveMessagingID(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, a.MessagingID, got)
	})
}
