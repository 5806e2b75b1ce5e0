// Package clientview tracks the per-session "currently open
// conversation" state for a messaging view. State is an explicit value
// moved through a small reducer, so the transitions are testable and
// nothing ambient is shared between views.
package clientview

import (
	"sync"

	"github.com/thangnstse171771/cakestory-messaging/internal/models"
	"github.com/thangnstse171771/cakestory-messaging/internal/service"
)

type Phase string

const (
	PhaseUnselected      Phase = "unselected"
	PhaseResolving       Phase = "resolving"
	PhaseOpen            Phase = "open"
	PhaseBlockedByViewer Phase = "blocked-by-viewer"
	PhaseBlockedByOther  Phase = "blocked-by-other"
)

type State struct {
	Phase        Phase
	Conversation *models.Conversation
	Viewer       *models.Account
	Other        *models.Account
	Block        service.BlockState
}

// Store serializes transitions for one session. Selecting a conversation
// enters Resolving until both account records arrive; logout clears
// everything.
type Store struct {
	mu    sync.Mutex
	state State
}

func NewStore() *Store {
	return &Store{state: State{Phase: PhaseUnselected}}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Select activates a conversation and waits for account records. Any
// previously resolved block state is discarded.
func (s *Store) Select(conv *models.Conversation) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Phase: PhaseResolving, Conversation: conv}
	return s.state
}

// AccountsLoaded completes resolution. When the viewer blocked the other
// party that takes precedence over being blocked, so the UI shows the
// viewer's own action first.
func (s *Store) AccountsLoaded(viewer, other *models.Account) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != PhaseResolving {
		return s.state
	}
	block := service.ResolveBlockState(viewer, other)
	next := State{
		Conversation: s.state.Conversation,
		Viewer:       viewer,
		Other:        other,
		Block:        block,
	}
	switch {
	case block.ViewerBlocked:
		next.Phase = PhaseBlockedByViewer
	case block.OtherBlocked:
		next.Phase = PhaseBlockedByOther
	default:
		next.Phase = PhaseOpen
	}
	s.state = next
	return s.state
}

// ResolveTimeout breaks a stuck Resolving phase when the account records
// never arrive. No-op in any other phase.
func (s *Store) ResolveTimeout() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase == PhaseResolving {
		s.state = State{Phase: PhaseUnselected}
	}
	return s.state
}

// Deselect returns to Unselected, dropping the active conversation.
func (s *Store) Deselect() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Phase: PhaseUnselected}
	return s.state
}

// Clear resets the store on logout; identical to Deselect today but kept
// separate because session teardown must always win, whatever the phase.
func (s *Store) Clear() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Phase: PhaseUnselected}
	return s.state
}
