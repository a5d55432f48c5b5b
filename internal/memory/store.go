// Package memory holds conversation history in process memory.
// Nothing is persisted: a restart discards every conversation.
package memory

import (
	"sync"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
)

// DefaultMaxTurns caps a conversation at 5 user/assistant pairs.
const DefaultMaxTurns = 10

// Store maps conversation IDs to their ordered turn history, capped to the
// most recent maxTurns entries. Oldest turns are evicted first. All methods
// are safe for concurrent use.
type Store struct {
	mu            sync.Mutex
	maxTurns      int
	conversations map[string][]domain.Turn
}

// NewStore creates an empty store. maxTurns <= 0 selects DefaultMaxTurns.
func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{
		maxTurns:      maxTurns,
		conversations: make(map[string][]domain.Turn),
	}
}

// Append adds turns to a conversation, creating it if unknown, then trims the
// history to the most recent maxTurns entries. The whole call is atomic: a
// user/assistant pair appended together can never be split by a concurrent
// append.
func (s *Store) Append(conversationID string, turns ...domain.Turn) {
	if len(turns) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.conversations[conversationID], turns...)
	if excess := len(history) - s.maxTurns; excess > 0 {
		history = history[excess:]
	}
	s.conversations[conversationID] = history
}

// Get returns a copy of the conversation's history, oldest first. An unknown
// conversation yields an empty slice, never an error: the first query of a
// fresh conversation is a normal case.
func (s *Store) Get(conversationID string) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.conversations[conversationID]
	out := make([]domain.Turn, len(history))
	copy(out, history)
	return out
}

// Delete removes one conversation. Reports whether it existed.
func (s *Store) Delete(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.conversations[conversationID]
	delete(s.conversations, conversationID)
	return ok
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}
