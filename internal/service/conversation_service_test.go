package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thangnstse171771/cakestory-messaging/internal/directory"
	"github.com/thangnstse171771/cakestory-messaging/internal/events"
	"github.com/thangnstse171771/cakestory-messaging/internal/logger"
	"github.com/thangnstse171771/cakestory-messaging/internal/models"
	"github.com/thangnstse171771/cakestory-messaging/internal/repository"
	"github.com/thangnstse171771/cakestory-messaging/internal/service"
)

type testEnv struct {
	accounts *repository.MemoryAccountRepository
	convs    *repository.MemoryConversationRepository
	inboxes  *repository.MemoryInboxRepository
	dir      *directory.Directory
	convSvc  *service.ConversationService
	members  *service.MembershipService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	accounts := repository.NewMemoryAccountRepository()
	convs := repository.NewMemoryConversationRepository()
	inboxes := repository.NewMemoryInboxRepository()
	zl := logger.Nop()
	dir := directory.New(accounts, directory.NewMemoryCache(), zl)
	writer := service.NewInboxWriter(inboxes, zl)
	return &testEnv{
		accounts: accounts,
		convs:    convs,
		inboxes:  inboxes,
		dir:      dir,
		convSvc:  service.NewConversationService(convs, accounts, dir, writer, events.NopPublisher{}, zl),
		members:  service.NewMembershipService(convs, dir, writer, events.NopPublisher{}, zl),
	}
}

func (e *testEnv) mustAccount(t *testing.T, accountID int64, name string) string {
	t.Helper()
	a := &models.Account{AccountID: accountID, DisplayName: name, Active: true}
	require.NoError(t, e.accounts.Create(context.Background(), a))
	return a.MessagingID
}

func (e *testEnv) inboxConversations(t *testing.T, ownerID string) []string {
	t.Helper()
	sums, err := e.convSvc.ListConversationsForAccount(context.Background(), ownerID)
	require.NoError(t, err)
	ids := make([]string, 0, len(sums))
	for _, s := range sums {
		ids = append(ids, s.ConversationID)
	}
	return ids
}

func shopInput(shopID, customer int64, staff ...int64) service.ShopConversationInput {
	return service.ShopConversationInput{
		ShopID:            shopID,
		ShopName:          "Sweet Crumbs",
		ShopAvatar:        "https://cdn.example/shop.png",
		CustomerAccountID: customer,
		StaffAccountIDs:   staff,
	}
}

func TestGetOrCreateShopConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstContactFansOutToAll", func(t *testing.T) {
		env := newTestEnv(t)
		c1 := env.mustAccount(t, 101, "C1")
		m1 := env.mustAccount(t, 201, "M1")
		m2 := env.mustAccount(t, 202, "M2")

		conv, err := env.convSvc.GetOrCreateShopConversation(ctx, shopInput(9, 101, 201, 202))
		require.NoError(t, err)
		require.NotEmpty(t, conv.ID)
		assert.Equal(t, models.KindShopGroup, conv.Kind)
		assert.ElementsMatch(t, []string{c1, m1, m2}, conv.Participants)
		assert.Equal(t, c1, conv.CustomerID)
		assert.ElementsMatch(t, []string{m1, m2}, conv.StaffIDs)

		for _, owner := range []string{c1, m1, m2} {
			assert.Equal(t, []string{conv.ID}, env.inboxConversations(t, owner))
		}
	})

	t.Run("SecondCallIsIdempotent", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustAccount(t, 101, "C1")
		env.mustAccount(t, 201, "M1")

		first, err := env.convSvc.GetOrCreateShopConversation(ctx, shopInput(9, 101, 201))
		require.NoError(t, err)
		second, err := env.convSvc.GetOrCreateShopConversation(ctx, shopInput(9, 101, 201))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		all, err := env.convs.ListForParticipant(ctx, first.CustomerID)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("SecondCustomerJoinsSameConversation", func(t *testing.T) {
		env := newTestEnv(t)
		c1 := env.mustAccount(t, 101, "C1")
		c2 := env.mustAccount(t, 102, "C2")
		m1 := env.mustAccount(t, 201, "M1")

		first, err := env.convSvc.GetOrCreateShopConversation(ctx, shopInput(9, 101, 201))
		require.NoError(t, err)
		second, err := env.convSvc.GetOrCreateShopConversation(ctx, shopInput(9, 102, 201))
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, []string{second.ID}, env.inboxConversations(t, c2))

		// existing members keep exactly one entry each
		for _, owner := range []string{c1, m1} {
			in, err := env.inboxes.Get(ctx, owner)
			require.NoError(t, err)
			assert.Len(t, in.Entries, 1)
		}
		got, err := env.convs.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, got.HasParticipant(c2))
		assert.Equal(t, models.RoleCustomer, service.RoleIn(got, c2))
	})

	t.Run("UnresolvedParticipantAbortsBeforeWrites", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustAccount(t, 101, "C1")

		_, err := env.convSvc.GetOrCreateShopConversation(ctx, shopInput(9, 101, 999))
		require.Error(t, err)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, err = env.convs.FindByDedupKey(ctx, models.ShopDedupKey(9))
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("ConcurrentFirstContactsYieldOneConversation", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustAccount(t, 101, "C1")
		env.mustAccount(t, 201, "M1")

		const n = 8
		ids := make([]string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				conv, err := env.convSvc.GetOrCreateShopConversation(ctx, shopInput(9, 101, 201))
				if assert.NoError(t, err) {
					ids[i] = conv.ID
				}
			}(i)
		}
		wg.Wait()

		for i := 1; i < n; i++ {
			assert.Equal(t, ids[0], ids[i])
		}
	})
}

func TestGetOrCreateDirectConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("PairIsOrderIndependent", func(t *testing.T) {
		env := newTestEnv(t)
		u1 := env.mustAccount(t, 11, "U1")
		u2 := env.mustAccount(t, 12, "U2")

		first, err := env.convSvc.GetOrCreateDirectConversation(ctx, 11, 12)
		require.NoError(t, err)
		second, err := env.convSvc.GetOrCreateDirectConversation(ctx, 12, 11)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, models.KindDirect, first.Kind)
		assert.ElementsMatch(t, []string{u1, u2}, first.Participants)
		assert.Equal(t, []string{first.ID}, env.inboxConversations(t, u1))
		assert.Equal(t, []string{first.ID}, env.inboxConversations(t, u2))
	})

	t.Run("RejectsSelfConversation", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustAccount(t, 11, "U1")

		_, err := env.convSvc.GetOrCreateDirectConversation(ctx, 11, 11)
		assert.ErrorIs(t, err, service.ErrSelfConversation)
	})
}

func TestListConversationsForAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyInboxListsNothing", func(t *testing.T) {
		env := newTestEnv(t)
		mid := env.mustAccount(t, 11, "U1")
		sums, err := env.convSvc.ListConversationsForAccount(ctx, mid)
		require.NoError(t, err)
		assert.Empty(t, sums)
	})

	t.Run("ShopMetadataIsDenormalized", func(t *testing.T) {
		env := newTestEnv(t)
		c1 := env.mustAccount(t, 101, "C1")
		env.mustAccount(t, 201, "M1")

		conv, err := env.convSvc.GetOrCreateShopConversation(ctx, shopInput(9, 101, 201))
		require.NoError(t, err)

		sums, err := env.convSvc.ListConversationsForAccount(ctx, c1)
		require.NoError(t, err)
		require.Len(t, sums, 1)
		assert.Equal(t, conv.ID, sums[0].ConversationID)
		assert.Equal(t, "Sweet Crumbs", sums[0].Title)
		assert.Equal(t, models.RoleCustomer, sums[0].Role)
	})

	t.Run("StaleEntryIsReadRepaired", func(t *testing.T) {
		env := newTestEnv(t)
		c1 := env.mustAccount(t, 101, "C1")
		m1 := env.mustAccount(t, 201, "M1")

		conv, err := env.convSvc.GetOrCreateShopConversation(ctx, shopInput(9, 101, 201))
		require.NoError(t, err)

		// simulate a removal that updated the participant list but
		// failed to retract the inbox entry
		require.NoError(t, env.convs.RemoveParticipant(ctx, conv.ID, m1))

		sums, err := env.convSvc.ListConversationsForAccount(ctx, m1)
		require.NoError(t, err)
		assert.Empty(t, sums)

		in, err := env.inboxes.Get(ctx, m1)
		require.NoError(t, err)
		assert.Empty(t, in.Entries)

		assert.Equal(t, []string{conv.ID}, env.inboxConversations(t, c1))
	})
}

func TestRecordMessage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c1 := env.mustAccount(t, 101, "C1")
	m1 := env.mustAccount(t, 201, "M1")

	conv, err := env.convSvc.GetOrCreateShopConversation(ctx, shopInput(9, 101, 201))
	require.NoError(t, err)

	snap := models.MessageSnapshot{Text: "two dozen cupcakes please"}
	require.NoError(t, env.convSvc.RecordMessage(ctx, conv.ID, snap))

	for _, owner := range []string{c1, m1} {
		sums, err := env.convSvc.ListConversationsForAccount(ctx, owner)
		require.NoError(t, err)
		require.Len(t, sums, 1)
		require.NotNil(t, sums[0].LastMessage)
		assert.Equal(t, snap.Text, sums[0].LastMessage.Text)
		assert.False(t, sums[0].Seen)
	}

	require.NoError(t, env.convSvc.MarkSeen(ctx, c1, conv.ID))
	sums, err := env.convSvc.ListConversationsForAccount(ctx, c1)
	require.NoError(t, err)
	assert.True(t, sums[0].Seen)
}
