package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thangnstse171771/cakestory-messaging/internal/models"
	"github.com/thangnstse171771/cakestory-messaging/internal/service"
)

func TestResolveBlockState(t *testing.T) {
	u1 := &models.Account{MessagingID: "u1"}
	u2 := &models.Account{MessagingID: "u2"}

	t.Run("NoBlocks", func(t *testing.T) {
		state := service.ResolveBlockState(u1, u2)
		assert.False(t, state.ViewerBlocked)
		assert.False(t, state.OtherBlocked)
	})

	t.Run("DirectionalAndAsymmetric", func(t *testing.T) {
		blocker := &models.Account{MessagingID: "u1", Blocked: []string{"u2"}}

		fromBlocker := service.ResolveBlockState(blocker, u2)
		assert.True(t, fromBlocker.ViewerBlocked)
		assert.False(t, fromBlocker.OtherBlocked)

		// swapping viewer and other swaps which flag is true
		fromBlocked := service.ResolveBlockState(u2, blocker)
		assert.False(t, fromBlocked.ViewerBlocked)
		assert.True(t, fromBlocked.OtherBlocked)
	})

	t.Run("MutualBlock", func(t *testing.T) {
		a := &models.Account{MessagingID: "u1", Blocked: []string{"u2"}}
		b := &models.Account{MessagingID: "u2", Blocked: []string{"u1"}}
		state := service.ResolveBlockState(a, b)
		assert.True(t, state.ViewerBlocked)
		assert.True(t, state.OtherBlocked)
	})
}

// End-to-end: U1 blocks U2, opens the direct conversation, and both
// views of the same conversation report the single directional block.
func TestBlockStateThroughDirectConversation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u1 := env.mustAccount(t, 11, "U1")
	u2 := env.mustAccount(t, 12, "U2")

	require.NoError(t, env.accounts.AddBlock(ctx, u1, u2))

	_, err := env.convSvc.GetOrCreateDirectConversation(ctx, 11, 12)
	require.NoError(t, err)

	u1View, err := env.convSvc.BlockStateFor(ctx, u1, u2)
	require.NoError(t, err)
	assert.True(t, u1View.ViewerBlocked)
	assert.False(t, u1View.OtherBlocked)

	u2View, err := env.convSvc.BlockStateFor(ctx, u2, u1)
	require.NoError(t, err)
	assert.False(t, u2View.ViewerBlocked)
	assert.True(t, u2View.OtherBlocked)
}
