package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/flow/core/protocol"
)

type memorySession struct {
	id    string
	items []protocol.Item
	mu    sync.RWMutex
}

// NewMemorySession creates a Session backed by an in-memory slice.
// The session is assigned a unique UUIDv7 identifier.
func NewMemorySession() Session {
	return &memorySession{
		id: uuid.Must(uuid.NewV7()).String(),
	}
}

func (s *memorySession) ID() string {
	return s.id
}

func (s *memorySession) GetItems(_ context.Context, limit int) ([]protocol.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return protocol.CloneItems(tail(s.items, limit)), nil
}

func (s *memorySession) AddItems(_ context.Context, items []protocol.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, items...)
	return nil
}
