package query

import (
	"testing"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func order(id, name string, status domain.Status, pay domain.PaymentMethod, created time.Time, total string) *domain.Order {
	return &domain.Order{
		ID:            id,
		CustomerName:  name,
		CustomerPhone: "+7 701 " + id,
		Status:        status,
		PaymentMethod: pay,
		CreatedAt:     created,
		Total:         decimal.RequireFromString(total),
		Items:         []domain.LineItem{{Name: "Wool coat", Quantity: 1}},
	}
}

func fixture() []*domain.Order {
	a := order("ORD-7782", "Aigerim", domain.StatusNew, domain.PaymentCash, now.Add(-time.Hour), "100")
	b := order("ORD-1001", "Bolat", domain.StatusProcessing, domain.PaymentCard, now.AddDate(0, 0, -1), "50")
	c := order("ORD-1002", "Chingiz", domain.StatusShipped, domain.PaymentCashPaid, now.AddDate(0, 0, -10), "25.5")
	c.CourierID = "courier-1"
	c.Items = []domain.LineItem{{Name: "Silk Scarf", Quantity: 2}}
	return []*domain.Order{a, b, c}
}

func ids(orders []*domain.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestQuery_FreeTextMatchesIDCaseInsensitive(t *testing.T) {
	orders := fixture()

	assert.Equal(t, []string{"ORD-7782"}, ids(Query(orders, Criteria{FreeText: "7782"})))
	assert.Equal(t, []string{"ORD-7782"}, ids(Query(orders, Criteria{FreeText: "ord-7782"})))
	assert.Equal(t, []string{"ORD-1002"}, ids(Query(orders, Criteria{FreeText: "SCARF"})))
	assert.Equal(t, []string{"ORD-1001"}, ids(Query(orders, Criteria{FreeText: "bolat"})))
	assert.Len(t, Query(orders, Criteria{FreeText: "coat"}), 2)
}

func TestQuery_PreservesOrderAndAndsCriteria(t *testing.T) {
	orders := fixture()

	assert.Equal(t, []string{"ORD-7782", "ORD-1001", "ORD-1002"}, ids(Query(orders, Criteria{})))
	assert.Equal(t, []string{"ORD-1001", "ORD-1002"}, ids(Query(orders, Criteria{Payment: PaymentPaid})))
	assert.Equal(t, []string{"ORD-7782"}, ids(Query(orders, Criteria{Payment: PaymentUnpaid})))
	assert.Equal(t, []string{"ORD-1002"}, ids(Query(orders, Criteria{Courier: "courier-1"})))
	assert.Equal(t, []string{"ORD-7782", "ORD-1001"}, ids(Query(orders, Criteria{Courier: CourierUnassigned})))
	assert.Empty(t, Query(orders, Criteria{FreeText: "ORD-7782", Payment: PaymentCard}))
}

func TestQuery_DateFilter(t *testing.T) {
	orders := fixture()

	today, err := DatePreset("today", now)
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD-7782"}, ids(Query(orders, Criteria{Date: today})))

	yesterday, err := DatePreset("yesterday", now)
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD-1001"}, ids(Query(orders, Criteria{Date: yesterday})))

	week, err := DatePreset("week", now)
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD-7782", "ORD-1001"}, ids(Query(orders, Criteria{Date: week})))

	all, err := DatePreset("all", now)
	require.NoError(t, err)
	assert.Nil(t, all)

	_, err = DatePreset("decade", now)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestParsePaymentFilter(t *testing.T) {
	p, err := ParsePaymentFilter(" Cash ")
	require.NoError(t, err)
	assert.Equal(t, PaymentCash, p)

	_, err = ParsePaymentFilter("bitcoin")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGroupByStatus(t *testing.T) {
	board := GroupByStatus(fixture())

	require.Len(t, board.Columns, len(domain.Statuses))
	for i, s := range domain.Statuses {
		assert.Equal(t, s, board.Columns[i].Status)
	}

	col, ok := board.Column(domain.StatusNew)
	require.True(t, ok)
	assert.Equal(t, 1, col.Summary.Count)
	assert.True(t, col.Summary.TotalRevenue.Equal(decimal.NewFromInt(100)))

	col, _ = board.Column(domain.StatusReturned)
	assert.Equal(t, 0, col.Summary.Count)
	assert.NotNil(t, col.Orders)
	assert.True(t, col.Summary.TotalRevenue.IsZero())
}

func TestQuery_DoesNotMutateInput(t *testing.T) {
	orders := fixture()
	_ = Query(orders, Criteria{FreeText: "7782"})
	_ = GroupByStatus(orders)
	assert.Equal(t, []string{"ORD-7782", "ORD-1001", "ORD-1002"}, ids(orders))
}
