package interfaces

import (
	"context"

	"github.com/YelzhanWeb/fulfillment/internal/domain"
)

// MutateFunc changes one order in place. Returning domain.ErrUnchanged
// aborts the write without failing the call.
type MutateFunc func(order *domain.Order) error

// Интерфейсы Репозиториев (Adapter/Postgres, Adapter/Memory)
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// List returns every order in insertion order.
	List(ctx context.Context) ([]*domain.Order, error)
	// Update runs mutate against the current state of one order and stores
	// the result atomically, bumping Version. Concurrent updates of the same
	// order serialize; the second one sees the state left by the first.
	Update(ctx context.Context, id string, mutate MutateFunc) (*domain.Order, error)
	NextID(ctx context.Context) (string, error)
}

type CourierRepository interface {
	Create(ctx context.Context, courier *domain.Courier) error
	FindByID(ctx context.Context, id string) (*domain.Courier, error)
	ListAll(ctx context.Context) ([]*domain.Courier, error)
}
