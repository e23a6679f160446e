package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/adapter/memory"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderChanged(ctx context.Context, msg interfaces.OrderChangedMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func newTestService(pub *MockPublisher) (*Service, *memory.OrderRepository) {
	repo := memory.NewOrderRepository()
	svc := NewService(repo, pub, logger.Nop())
	svc.now = func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }
	svc.codes = func() (string, error) { return "0427", nil }
	return svc, repo
}

func validCommand() interfaces.CreateOrderCommand {
	return interfaces.CreateOrderCommand{
		CustomerName:  "Aruzhan",
		CustomerPhone: "+7 702 555 0101",
		Address:       "Tole bi 42",
		PaymentMethod: "cash",
		Discount:      decimal.NewFromInt(5),
		Items: []domain.LineItem{
			{ProductRef: "p-1", Name: "Linen shirt", UnitPrice: decimal.NewFromInt(30), Quantity: 2},
		},
	}
}

func TestCreateOrder_Success(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishOrderChanged", mock.Anything, mock.MatchedBy(func(m interfaces.OrderChangedMessage) bool {
		return m.Event == interfaces.EventOrderCreated && m.NewStatus == domain.StatusNew
	})).Return(nil).Once()
	svc, repo := newTestService(pub)

	order, err := svc.CreateOrder(context.Background(), validCommand())
	require.NoError(t, err)

	assert.Equal(t, "ORD-1001", order.ID)
	assert.Equal(t, domain.StatusNew, order.Status)
	assert.Equal(t, "0427", order.VerificationCode)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(55)))
	require.Len(t, order.History, 1)
	assert.Equal(t, "order created", order.History[0].Description)

	stored, err := repo.FindByID(context.Background(), "ORD-1001")
	require.NoError(t, err)
	assert.Equal(t, order.Total.String(), stored.Total.String())
	pub.AssertExpectations(t)
}

func TestCreateOrder_KeepsCheckoutID(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishOrderChanged", mock.Anything, mock.Anything).Return(nil)
	svc, _ := newTestService(pub)

	cmd := validCommand()
	cmd.OrderID = "ORD-7782"
	order, err := svc.CreateOrder(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "ORD-7782", order.ID)

	_, err = svc.CreateOrder(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*interfaces.CreateOrderCommand)
		field  string
	}{
		{"no items", func(c *interfaces.CreateOrderCommand) { c.Items = nil }, "items"},
		{"zero quantity", func(c *interfaces.CreateOrderCommand) { c.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"no address", func(c *interfaces.CreateOrderCommand) { c.Address = "" }, "address"},
		{"unknown payment", func(c *interfaces.CreateOrderCommand) { c.PaymentMethod = "barter" }, "payment_method"},
		{"pre-settled cash", func(c *interfaces.CreateOrderCommand) { c.PaymentMethod = "cash_paid" }, "payment_method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := new(MockPublisher)
			svc, repo := newTestService(pub)

			cmd := validCommand()
			tt.modify(&cmd)
			_, err := svc.CreateOrder(context.Background(), cmd)

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)

			orders, _ := repo.List(context.Background())
			assert.Empty(t, orders)
			pub.AssertNotCalled(t, "PublishOrderChanged", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateOrder_PickupNeedsNoAddress(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishOrderChanged", mock.Anything, mock.Anything).Return(nil)
	svc, _ := newTestService(pub)

	cmd := validCommand()
	cmd.Pickup = true
	cmd.Address = ""
	cmd.CustomerName = ""
	order, err := svc.CreateOrder(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, order.Pickup)
}

func TestCreateOrder_PublishFailureStillStores(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishOrderChanged", mock.Anything, mock.Anything).Return(errors.New("channel closed"))
	svc, repo := newTestService(pub)

	order, err := svc.CreateOrder(context.Background(), validCommand())
	require.NoError(t, err)

	_, err = repo.FindByID(context.Background(), order.ID)
	assert.NoError(t, err)
}

func TestVerificationCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := VerificationCode()
		require.NoError(t, err)
		assert.Regexp(t, `^\d{4}$`, code)
	}
}

func TestFromCheckoutMessage(t *testing.T) {
	buy := decimal.NewFromInt(12)
	cmd := FromCheckoutMessage(interfaces.CheckoutOrderMessage{
		OrderID:       "ORD-5",
		PaymentMethod: "card",
		Items: []interfaces.CheckoutItemMessage{
			{ProductRef: "p-9", Name: "Cap", UnitPrice: decimal.NewFromInt(20), BuyPrice: &buy, Quantity: 3, SelectedColor: "black"},
		},
	})

	assert.Equal(t, "ORD-5", cmd.OrderID)
	require.Len(t, cmd.Items, 1)
	assert.Equal(t, "p-9", cmd.Items[0].ProductRef)
	assert.Equal(t, 3, cmd.Items[0].Quantity)
	assert.True(t, cmd.Items[0].BuyPrice.Equal(buy))
}
