package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/app/metrics"
	"github.com/YelzhanWeb/fulfillment/internal/app/query"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/shopspring/decimal"
)

// Интерфейсы Сервисов (Business Logic)
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
}

type FulfillmentService interface {
	Transition(ctx context.Context, orderID string, to domain.Status, actor string) (*domain.Order, error)
	Drop(ctx context.Context, orderID string, column domain.Status, actor string) (*domain.Order, error)
	AssignCourier(ctx context.Context, orderID, courierID, actor string) (*domain.Order, error)
	MarkPaid(ctx context.Context, orderID, actor string) (*domain.Order, error)
	AddTag(ctx context.Context, orderID, tag, actor string) (*domain.Order, error)
	AddNote(ctx context.Context, orderID, author, text string) (*domain.Order, error)
	EditOrder(ctx context.Context, orderID string, cmd EditOrderCommand, actor string) (*domain.Order, error)
	ConfirmDelivery(ctx context.Context, orderID, code string) (*domain.Order, error)
}

type BulkService interface {
	ApplyIDs(ctx context.Context, orderIDs []string, op BulkOperation, actor string) BulkReport
}

type TrackingService interface {
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	Query(ctx context.Context, criteria query.Criteria) ([]*domain.Order, error)
	Board(ctx context.Context, criteria query.Criteria) (query.Board, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetHistory(ctx context.Context, orderID string) ([]domain.HistoryEntry, error)
	GetNotes(ctx context.Context, orderID string) ([]domain.ManagerNote, error)
	GetProfit(ctx context.Context, orderID string) (*OrderProfitResponse, error)
	GetCouriers(ctx context.Context) ([]*CourierResponse, error)
	DailyReport(ctx context.Context, loc *time.Location) ([]metrics.DaySummary, error)
}

// Команды для сервисов
type CreateOrderCommand struct {
	OrderID       string
	CustomerName  string
	CustomerPhone string
	Address       string
	Pickup        bool
	PaymentMethod string
	Discount      decimal.Decimal
	Items         []domain.LineItem
}

// EditOrderCommand is a patch: nil fields are left as they are.
// A non-zero ExpectedVersion rejects the patch with domain.ErrStaleDraft
// when the order has moved on.
type EditOrderCommand struct {
	Items           *[]domain.LineItem
	CustomerName    *string
	CustomerPhone   *string
	Address         *string
	ExpectedVersion int64
}

type BulkKind string

const (
	BulkTransition BulkKind = "transition"
	BulkPrint      BulkKind = "print"
)

type BulkOperation struct {
	Kind   BulkKind
	Status domain.Status
}

type BulkResult struct {
	OrderID string
	Status  domain.Status
	Err     error
}

func (r BulkResult) OK() bool {
	return r.Err == nil
}

// BulkReport lists one result per distinct order id, in selection order.
type BulkReport struct {
	Operation BulkOperation
	BatchID   string
	Results   []BulkResult
}

func (r BulkReport) Succeeded() []string {
	var ids []string
	for _, res := range r.Results {
		if res.OK() {
			ids = append(ids, res.OrderID)
		}
	}
	return ids
}

func (r BulkReport) Failed() []BulkResult {
	var failed []BulkResult
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Ответы Tracking Service
type OrderProfitResponse struct {
	OrderID string
	Profit  metrics.Profit
	SLA     metrics.SLAState
	Age     time.Duration
}

type CourierResponse struct {
	CourierID    string
	Name         string
	Phone        string
	ActiveOrders int
}
