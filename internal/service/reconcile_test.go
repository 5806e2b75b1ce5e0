package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thangnstse171771/cakestory-messaging/internal/logger"
	"github.com/thangnstse171771/cakestory-messaging/internal/models"
	"github.com/thangnstse171771/cakestory-messaging/internal/service"
)

func TestReconcileInbox(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	rec := service.NewReconciler(env.convs, env.inboxes, logger.Nop())

	c1 := env.mustAccount(t, 101, "C1")
	m1 := env.mustAccount(t, 201, "M1")

	conv, err := env.convSvc.GetOrCreateShopConversation(ctx, shopInput(9, 101, 201))
	require.NoError(t, err)

	// dangling entry: conversation dropped the owner but the entry stayed
	require.NoError(t, env.convs.RemoveParticipant(ctx, conv.ID, m1))
	// dangling entry: conversation never existed
	_, err = env.inboxes.Upsert(ctx, m1, models.InboxEntry{ConversationID: "ghost"})
	require.NoError(t, err)

	removed, err := rec.ReconcileInbox(ctx, m1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	in, err := env.inboxes.Get(ctx, m1)
	require.NoError(t, err)
	assert.Empty(t, in.Entries)

	// a healthy inbox is left alone
	removed, err = rec.ReconcileInbox(ctx, c1)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// no inbox container at all is fine
	removed, err = rec.ReconcileInbox(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestReFanout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	rec := service.NewReconciler(env.convs, env.inboxes, logger.Nop())

	c1 := env.mustAccount(t, 101, "C1")
	m1 := env.mustAccount(t, 201, "M1")

	conv, err := env.convSvc.GetOrCreateShopConversation(ctx, shopInput(9, 101, 201))
	require.NoError(t, err)

	// simulate a partial fan-out: one owner lost their entry
	require.NoError(t, env.inboxes.Remove(ctx, m1, conv.ID))

	restored, err := rec.ReFanout(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.Equal(t, []string{conv.ID}, env.inboxConversations(t, m1))

	// existing entries are untouched; running again restores nothing
	restored, err = rec.ReFanout(ctx, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, restored)

	in, err := env.inboxes.Get(ctx, c1)
	require.NoError(t, err)
	assert.Len(t, in.Entries, 1)
}
