package repository

import (
	"context"
	"sync"

	"shopchat/pkg/models"
)

// MemoryStore keeps the queue in process memory. Used by tests and by
// consumers that do not need the backlog to survive a restart.
type MemoryStore struct {
	mu   sync.Mutex
	msgs []models.QueuedMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, msg models.QueuedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *MemoryStore) ReadAll(_ context.Context) ([]models.QueuedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.QueuedMessage, len(s.msgs))
	copy(out, s.msgs)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
	return nil
}
