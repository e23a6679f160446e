package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrder(t *testing.T, repo *OrderRepository, id string) *domain.Order {
	t.Helper()
	items := []domain.LineItem{{Name: "Coat", UnitPrice: decimal.NewFromInt(10), Quantity: 1}}
	o, err := domain.NewOrder(id, domain.Contact{Name: "A", Phone: "1", Address: "Street 1"}, items, domain.PaymentCash, decimal.Zero, "0000", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), o))
	return o
}

func TestOrderRepository_CreateAndFind(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	o := seedOrder(t, repo, "ORD-1")
	assert.Equal(t, int64(1), o.Version)

	got, err := repo.FindByID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.ID)

	got.Items[0].Name = "mutated"
	again, _ := repo.FindByID(ctx, "ORD-1")
	assert.Equal(t, "Coat", again.Items[0].Name)

	err = repo.Create(ctx, o)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepository_ListKeepsInsertionOrder(t *testing.T) {
	repo := NewOrderRepository()
	for _, id := range []string{"ORD-3", "ORD-1", "ORD-2"} {
		seedOrder(t, repo, id)
	}

	orders, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "ORD-3", orders[0].ID)
	assert.Equal(t, "ORD-1", orders[1].ID)
	assert.Equal(t, "ORD-2", orders[2].ID)
}

func TestOrderRepository_Update(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	seedOrder(t, repo, "ORD-1")

	updated, err := repo.Update(ctx, "ORD-1", func(o *domain.Order) error {
		return o.TransitionTo(domain.StatusProcessing, "system", time.Now())
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, updated.Status)
	assert.Equal(t, int64(2), updated.Version)

	unchanged, err := repo.Update(ctx, "ORD-1", func(o *domain.Order) error {
		return o.TransitionTo(domain.StatusProcessing, "system", time.Now())
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), unchanged.Version)
	assert.Len(t, unchanged.History, 2)

	_, err = repo.Update(ctx, "ORD-1", func(o *domain.Order) error {
		o.Tags = append(o.Tags, "half-applied")
		return domain.NewValidationError("items", "bad")
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
	stored, _ := repo.FindByID(ctx, "ORD-1")
	assert.Empty(t, stored.Tags)

	_, err = repo.Update(ctx, "missing", func(*domain.Order) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepository_ConcurrentTransitionsSerialize(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	seedOrder(t, repo, "ORD-1")

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Update(ctx, "ORD-1", func(o *domain.Order) error {
				if o.Status != domain.StatusNew {
					return &domain.TransitionError{From: o.Status, To: domain.StatusProcessing}
				}
				return o.TransitionTo(domain.StatusProcessing, "system", time.Now())
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, succeeded)

	stored, _ := repo.FindByID(ctx, "ORD-1")
	assert.Len(t, stored.History, 2)
	assert.Equal(t, int64(2), stored.Version)
}

func TestOrderRepository_NextIDSkipsTaken(t *testing.T) {
	repo := NewOrderRepository()
	seedOrder(t, repo, "ORD-1001")

	id, err := repo.NextID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ORD-1002", id)
}

func TestCourierRepository(t *testing.T) {
	repo := NewCourierRepository()
	ctx := context.Background()

	c, err := domain.NewCourier("courier-1", "Daulet", "+7 700 000 0001")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, c))
	assert.ErrorIs(t, repo.Create(ctx, c), domain.ErrAlreadyExists)

	got, err := repo.FindByID(ctx, "courier-1")
	require.NoError(t, err)
	assert.Equal(t, "Daulet", got.Name)

	_, err = repo.FindByID(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
