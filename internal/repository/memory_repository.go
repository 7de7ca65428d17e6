package repository

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// MemoryRepository keeps serialized slots in process memory. Used for local
// runs and tests; it serializes like the durable backends so callers never
// share slices with the store.
type MemoryRepository struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{slots: make(map[string][]byte)}
}

func (m *MemoryRepository) GetCart(_ context.Context, key string) ([]domain.CartLine, error) {
	m.mu.RLock()
	data, ok := m.slots[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrCartNotFound
	}
	return decodeLines(data)
}

func (m *MemoryRepository) SaveCart(_ context.Context, key string, lines []domain.CartLine) error {
	data, err := encodeLines(lines)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.slots[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) DeleteCart(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[key]; !ok {
		return ErrCartNotFound
	}
	delete(m.slots, key)
	return nil
}

// Raw returns the stored bytes for key, for comparing persisted snapshots.
func (m *MemoryRepository) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.slots[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}
