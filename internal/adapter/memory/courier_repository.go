package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/YelzhanWeb/fulfillment/internal/domain"
)

type CourierRepository struct {
	mu       sync.RWMutex
	couriers map[string]*domain.Courier
	ids      []string
}

func NewCourierRepository() *CourierRepository {
	return &CourierRepository{couriers: make(map[string]*domain.Courier)}
}

func (r *CourierRepository) Create(ctx context.Context, courier *domain.Courier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.couriers[courier.ID]; exists {
		return fmt.Errorf("courier %s: %w", courier.ID, domain.ErrAlreadyExists)
	}

	c := *courier
	r.couriers[courier.ID] = &c
	r.ids = append(r.ids, courier.ID)
	return nil
}

func (r *CourierRepository) FindByID(ctx context.Context, id string) (*domain.Courier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.couriers[id]
	if !ok {
		return nil, domain.CourierNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (r *CourierRepository) ListAll(ctx context.Context) ([]*domain.Courier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Courier, 0, len(r.ids))
	for _, id := range r.ids {
		c := *r.couriers[id]
		out = append(out, &c)
	}
	return out, nil
}
