package store

import (
	"context"
	"sync"
)

// MemoryStorage keeps slots in process memory.
type MemoryStorage struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{slots: map[string][]byte{}}
}

func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.slots[key]
	if !ok {
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[key] = append([]byte(nil), value...)
	return nil
}
