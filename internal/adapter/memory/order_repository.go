package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
)

// orderSlot serializes writers of one order without blocking other orders.
type orderSlot struct {
	mu    sync.Mutex
	order *domain.Order
}

type OrderRepository struct {
	mu    sync.RWMutex
	slots map[string]*orderSlot
	ids   []string
	seq   int
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		slots: make(map[string]*orderSlot),
		seq:   1000,
	}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.slots[order.ID]; exists {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrAlreadyExists)
	}

	stored := order.Clone()
	if stored.Version == 0 {
		stored.Version = 1
	}
	order.Version = stored.Version

	r.slots[order.ID] = &orderSlot{order: stored}
	r.ids = append(r.ids, order.ID)
	return nil
}

func (r *OrderRepository) slot(id string) (*orderSlot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[id]
	return s, ok
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	s, ok := r.slot(id)
	if !ok {
		return nil, domain.OrderNotFound(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Clone(), nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	r.mu.RLock()
	slots := make([]*orderSlot, 0, len(r.ids))
	for _, id := range r.ids {
		slots = append(slots, r.slots[id])
	}
	r.mu.RUnlock()

	orders := make([]*domain.Order, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		orders = append(orders, s.order.Clone())
		s.mu.Unlock()
	}
	return orders, nil
}

func (r *OrderRepository) Update(ctx context.Context, id string, mutate interfaces.MutateFunc) (*domain.Order, error) {
	s, ok := r.slot(id)
	if !ok {
		return nil, domain.OrderNotFound(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.order.Clone()
	if err := mutate(draft); err != nil {
		if errors.Is(err, domain.ErrUnchanged) {
			return s.order.Clone(), nil
		}
		return nil, err
	}

	draft.ID = s.order.ID
	draft.Version = s.order.Version + 1
	s.order = draft
	return draft.Clone(), nil
}

func (r *OrderRepository) NextID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		r.seq++
		id := fmt.Sprintf("ORD-%d", r.seq)
		if _, taken := r.slots[id]; !taken {
			return id, nil
		}
	}
}
