package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/z-research/internal/model/chat"
)

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrMessageFinalized = errors.New("message already finalized")
)

// Store is the ordered, append-only message log of one conversation.
// Insertion order is display order; entries are never removed or reordered.
type Store struct {
	mu       sync.RWMutex
	messages []chat.Message
	index    map[string]int
	now      func() time.Time
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		messages: make([]chat.Message, 0, 16),
		index:    make(map[string]int),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Append assigns a fresh id to message, stores it after every existing entry
// and returns the id. Any id already set on message is ignored.
func (s *Store) Append(message chat.Message) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	message.ID = uuid.NewString()
	if message.Status == "" {
		message.Status = chat.StatusPending
	}
	now := s.now()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = now
	}
	message.UpdatedAt = now

	s.index[message.ID] = len(s.messages)
	s.messages = append(s.messages, message)
	return message.ID
}

// Update applies patch to the message identified by id. Messages that reached
// complete or errored are frozen and reject further updates.
func (s *Store) Update(id string, patch chat.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return ErrMessageNotFound
	}

	message := &s.messages[pos]
	if message.Status.Final() {
		return ErrMessageFinalized
	}

	if patch.RawText != nil {
		message.RawText = *patch.RawText
	}
	if patch.RenderedMarkup != nil {
		message.RenderedMarkup = *patch.RenderedMarkup
	}
	if patch.Status != nil {
		message.Status = *patch.Status
	}
	message.UpdatedAt = s.now()
	return nil
}

// Get returns a copy of the message identified by id.
func (s *Store) Get(id string) (chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return chat.Message{}, ErrMessageNotFound
	}
	return s.messages[pos], nil
}

// All returns a snapshot of every message in insertion order.
func (s *Store) All() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]chat.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
