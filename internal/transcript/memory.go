package transcript

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store for tests and storage-disabled runs.
type MemoryStore struct {
	mu     sync.RWMutex
	turns  map[string]*Turn
	events map[string][]*StoredEvent
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		turns:  make(map[string]*Turn),
		events: make(map[string][]*StoredEvent),
	}
}

func (s *MemoryStore) SaveTurn(ctx context.Context, turn *Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *turn
	s.turns[turn.ID] = &copied
	return nil
}

func (s *MemoryStore) AppendEvent(ctx context.Context, ev *StoredEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *ev
	s.events[ev.TurnID] = append(s.events[ev.TurnID], &copied)
	return nil
}

func (s *MemoryStore) GetTurn(ctx context.Context, id string) (*Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turn, ok := s.turns[id]
	if !ok {
		return nil, fmt.Errorf("turn %s not found", id)
	}
	copied := *turn
	return &copied, nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, turnID string) ([]*StoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]*StoredEvent, len(s.events[turnID]))
	copy(events, s.events[turnID])
	return events, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
