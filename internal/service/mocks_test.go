package service

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

// failingRepository wraps a MemoryRepository and fails writes while failSave is set.
type failingRepository struct {
	*repository.MemoryRepository
	mu       sync.Mutex
	failSave bool
	failGet  bool
}

func newFailingRepository() *failingRepository {
	return &failingRepository{MemoryRepository: repository.NewMemoryRepository()}
}

func (f *failingRepository) setFailSave(v bool) {
	f.mu.Lock()
	f.failSave = v
	f.mu.Unlock()
}

func (f *failingRepository) GetCart(ctx context.Context, key string) ([]domain.CartLine, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return nil, errors.New("storage unavailable")
	}
	return f.MemoryRepository.GetCart(ctx, key)
}

func (f *failingRepository) SaveCart(ctx context.Context, key string, lines []domain.CartLine) error {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return errors.New("storage unavailable")
	}
	return f.MemoryRepository.SaveCart(ctx, key, lines)
}

func (f *failingRepository) DeleteCart(ctx context.Context, key string) error {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return errors.New("storage unavailable")
	}
	return f.MemoryRepository.DeleteCart(ctx, key)
}

// cancelAwareRepository refuses writes on a done context, like a networked store would.
type cancelAwareRepository struct {
	*repository.MemoryRepository
}

func (c *cancelAwareRepository) SaveCart(ctx context.Context, key string, lines []domain.CartLine) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.MemoryRepository.SaveCart(ctx, key, lines)
}

func (c *cancelAwareRepository) DeleteCart(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.MemoryRepository.DeleteCart(ctx, key)
}

// MockOrderGateway hands out sequential order ids starting at NextID.
type MockOrderGateway struct {
	mu sync.Mutex

	NextID      int64
	FailCreate  map[int64]error // by product id
	CompleteErr error
	OnComplete  func()

	Created   []domain.OrderRequest
	Completed []int64
}

func (m *MockOrderGateway) CreateOrder(_ context.Context, req domain.OrderRequest) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, req)
	if err, ok := m.FailCreate[req.ProductID]; ok {
		return 0, err
	}
	id := m.NextID
	m.NextID++
	return id, nil
}

func (m *MockOrderGateway) CompleteOrder(_ context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Completed = append(m.Completed, orderID)
	if m.OnComplete != nil {
		m.OnComplete()
	}
	return m.CompleteErr
}

func (m *MockOrderGateway) createdCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}

func (m *MockOrderGateway) completedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Completed)
}

type MockLedger struct {
	mu        sync.Mutex
	Recorded  []domain.SubmittedOrder
	Completed []int64
	Err       error
}

func (m *MockLedger) RecordSubmission(_ context.Context, order domain.SubmittedOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recorded = append(m.Recorded, order)
	return m.Err
}

func (m *MockLedger) MarkCompleted(_ context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Completed = append(m.Completed, orderID)
	return m.Err
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []domain.CheckoutEvent
}

func (m *MockPublisher) Publish(_ context.Context, event domain.CheckoutEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}
