package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func testItems() []LineItem {
	buy := decimal.RequireFromString("6.00")
	return []LineItem{
		{ProductRef: "p-1", Name: "Linen shirt", UnitPrice: decimal.RequireFromString("10.00"), BuyPrice: &buy, Quantity: 2, SelectedSize: "M"},
		{ProductRef: "p-2", Name: "Scarf", UnitPrice: decimal.RequireFromString("5.50"), Quantity: 1},
	}
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder("ORD-1", Contact{Name: "Aru", Phone: "+7 700 000", Address: "Abay 1"}, testItems(), PaymentCash, decimal.Zero, "1234", t0)
	require.NoError(t, err)
	return order
}

func TestNewOrder(t *testing.T) {
	order := newTestOrder(t)

	assert.Equal(t, StatusNew, order.Status)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("25.50")))
	require.Len(t, order.History, 1)
	assert.Equal(t, "order created", order.History[0].Description)
	assert.Empty(t, order.CourierID)
}

func TestNewOrder_Discount(t *testing.T) {
	order, err := NewOrder("ORD-2", Contact{Pickup: true}, testItems(), PaymentCard, decimal.RequireFromString("30"), "0001", t0)
	require.NoError(t, err)
	assert.True(t, order.Total.IsZero(), "total never drops below zero")
}

func TestNewOrder_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		contact Contact
		items   []LineItem
		payment PaymentMethod
		field   string
	}{
		{name: "no items", contact: Contact{Pickup: true}, items: nil, payment: PaymentCash, field: "items"},
		{name: "zero quantity", contact: Contact{Pickup: true}, items: []LineItem{{Name: "x", Quantity: 0}}, payment: PaymentCash, field: "items[0].quantity"},
		{name: "missing address", contact: Contact{Name: "A", Phone: "1"}, items: testItems(), payment: PaymentCash, field: "address"},
		{name: "bad payment", contact: Contact{Pickup: true}, items: testItems(), payment: "crypto", field: "payment_method"},
		{name: "sub-cent price", contact: Contact{Pickup: true}, items: []LineItem{{Name: "pin", UnitPrice: decimal.RequireFromString("0.005"), Quantity: 2}}, payment: PaymentCash, field: "items[0].unit_price"},
		{name: "sub-cent buy price", contact: Contact{Pickup: true}, items: []LineItem{{Name: "pin", UnitPrice: decimal.RequireFromString("1"), BuyPrice: decimalPtr("0.333"), Quantity: 1}}, payment: PaymentCash, field: "items[0].buy_price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder("ORD-X", tt.contact, tt.items, tt.payment, decimal.Zero, "0000", t0)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestNewOrder_SubCentDiscount(t *testing.T) {
	_, err := NewOrder("ORD-3", Contact{Pickup: true}, testItems(), PaymentCard, decimal.RequireFromString("0.125"), "0001", t0)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "discount", vErr.Field)
}

func TestTotalSurvivesTwoDecimalStorage(t *testing.T) {
	order := newTestOrder(t)

	// NUMERIC(12,2) columns round each value on their own
	stored := order.Clone()
	for i := range stored.Items {
		stored.Items[i].UnitPrice = stored.Items[i].UnitPrice.Round(2)
	}
	stored.Discount = stored.Discount.Round(2)
	stored.CalculateTotal()

	assert.True(t, order.Total.Round(2).Equal(stored.Total))
}

func TestTransitionTo(t *testing.T) {
	order := newTestOrder(t)

	require.NoError(t, order.TransitionTo(StatusProcessing, "system", t0.Add(time.Minute)))
	assert.Equal(t, StatusProcessing, order.Status)
	assert.Len(t, order.History, 2)
	assert.Equal(t, StatusNew, order.History[1].FromStatus)
	assert.Equal(t, StatusProcessing, order.History[1].ToStatus)

	err := order.TransitionTo(StatusProcessing, "system", t0.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrUnchanged)
	assert.Len(t, order.History, 2)

	err = order.TransitionTo(StatusDelivered, "admin", t0.Add(3*time.Minute))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusProcessing, order.Status)
}

func TestTransitionTo_CancelReleasesCourier(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.TransitionTo(StatusProcessing, "system", t0))
	require.NoError(t, order.AssignCourier("courier-1", "admin", t0))
	require.Equal(t, StatusReadyToShip, order.Status)

	require.NoError(t, order.TransitionTo(StatusCancelled, "admin", t0))
	assert.Empty(t, order.CourierID)
	assert.Equal(t, "courier courier-1 released", order.History[len(order.History)-1].Description)
}

func TestTransitionTo_ReturnReleasesCourier(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.TransitionTo(StatusProcessing, "system", t0))
	require.NoError(t, order.AssignCourier("courier-1", "admin", t0))
	require.NoError(t, order.TransitionTo(StatusShipped, "courier-1", t0.Add(time.Hour)))
	require.Equal(t, "courier-1", order.CourierID)

	require.NoError(t, order.TransitionTo(StatusReturned, "admin", t0.Add(2*time.Hour)))
	assert.Equal(t, StatusReturned, order.Status)
	assert.Empty(t, order.CourierID)

	last := order.History[len(order.History)-1]
	assert.Equal(t, "courier courier-1 released", last.Description)
	assert.Equal(t, StatusReturned, order.History[len(order.History)-2].ToStatus)
}

func TestAssignCourier(t *testing.T) {
	order := newTestOrder(t)

	err := order.AssignCourier("courier-1", "admin", t0)
	assert.ErrorIs(t, err, ErrInvalidTransition, "new orders cannot take a courier")

	require.NoError(t, order.TransitionTo(StatusProcessing, "system", t0))
	require.NoError(t, order.AssignCourier("courier-1", "admin", t0))
	assert.Equal(t, StatusReadyToShip, order.Status)
	assert.Equal(t, "courier-1", order.CourierID)

	assert.ErrorIs(t, order.AssignCourier("courier-1", "admin", t0), ErrUnchanged)

	require.NoError(t, order.AssignCourier("courier-2", "admin", t0))
	assert.Equal(t, "courier-2", order.CourierID)
	assert.Equal(t, "courier changed from courier-1 to courier-2", order.History[len(order.History)-1].Description)
}

func TestMarkPaid(t *testing.T) {
	order := newTestOrder(t)
	assert.True(t, order.AmountDue().Equal(order.Total))

	require.NoError(t, order.MarkPaid("admin", t0))
	assert.Equal(t, PaymentCashPaid, order.PaymentMethod)
	assert.True(t, order.AmountDue().IsZero())

	assert.ErrorIs(t, order.MarkPaid("admin", t0), ErrAlreadySettled)

	order.PaymentMethod = PaymentCard
	assert.ErrorIs(t, order.MarkPaid("admin", t0), ErrAlreadySettled)
}

func TestAddTagAndNote(t *testing.T) {
	order := newTestOrder(t)

	require.NoError(t, order.AddTag("vip"))
	assert.ErrorIs(t, order.AddTag("VIP"), ErrUnchanged)
	assert.ErrorIs(t, order.AddTag("  "), ErrValidation)
	assert.Equal(t, []string{"vip"}, order.Tags)

	require.NoError(t, order.AddNote(ManagerNote{ID: "n1", Author: "dana", Text: "call first", Timestamp: t0}))
	require.NoError(t, order.AddNote(ManagerNote{ID: "n2", Author: "dana", Text: "fragile", Timestamp: t0.Add(time.Minute)}))
	assert.ErrorIs(t, order.AddNote(ManagerNote{Author: "dana", Text: "   "}), ErrValidation)
	require.NoError(t, order.AddNote(ManagerNote{ID: "n3", Text: "no author on this one", Timestamp: t0.Add(2 * time.Minute)}))

	notes := order.NotesNewestFirst()
	require.Len(t, notes, 3)
	assert.Equal(t, "n3", notes[0].ID)
	assert.Equal(t, "n1", order.ManagerNotes[0].ID)
}

func TestApplyEdit_AllOrNothing(t *testing.T) {
	order := newTestOrder(t)
	before := order.Clone()

	bad := testItems()
	bad[1].Quantity = 0
	err := order.ApplyEdit(bad, Contact{Name: "New", Phone: "2", Address: "Other"}, "admin", t0)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, before, order)

	good := testItems()[:1]
	require.NoError(t, order.ApplyEdit(good, Contact{Name: "New", Phone: "2", Address: "Other"}, "admin", t0))
	assert.Equal(t, "New", order.CustomerName)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("20")))
	assert.Len(t, order.History, 2)
}

func TestHistoryTimestampsMonotonic(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.TransitionTo(StatusProcessing, "system", t0.Add(-time.Hour)))
	assert.False(t, order.History[1].Timestamp.Before(order.History[0].Timestamp))
}

func TestClone_IsDeep(t *testing.T) {
	order := newTestOrder(t)
	c := order.Clone()
	c.Items[0].Quantity = 9
	*c.Items[0].BuyPrice = decimal.NewFromInt(99)
	c.History[0].Description = "changed"

	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.True(t, order.Items[0].BuyPrice.Equal(decimal.RequireFromString("6")))
	assert.Equal(t, "order created", order.History[0].Description)
}
