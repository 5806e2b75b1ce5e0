package service

import "github.com/thangnstse171771/cakestory-messaging/internal/models"

// BlockState reports both block directions independently. Blocking is
// directional: A blocking B is recorded only on A's record, so the two
// flags must never be averaged or OR-ed together.
type BlockState struct {
	// ViewerBlocked: the viewer has blocked the other party.
	ViewerBlocked bool `json:"viewer_blocked"`
	// OtherBlocked: the other party has blocked the viewer.
	OtherBlocked bool `json:"other_blocked"`
}

// ResolveBlockState is a pure function over two already-loaded accounts;
// it performs no fetches.
func ResolveBlockState(viewer, other *models.Account) BlockState {
	return BlockState{
		ViewerBlocked: viewer.HasBlocked(other.MessagingID),
		OtherBlocked:  other.HasBlocked(viewer.MessagingID),
	}
}
