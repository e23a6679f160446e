package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/shopspring/decimal"
)

// Order change events, fanned out to dashboards and the notification subscriber.
const (
	EventOrderCreated      = "order.created"
	EventOrderTransitioned = "order.transitioned"
	EventCourierAssigned   = "order.courier_assigned"
	EventOrderPaid         = "order.paid"
	EventOrderEdited       = "order.edited"
	EventOrderTagged       = "order.tagged"
	EventNoteAdded         = "order.note_added"
)

type OrderChangedMessage struct {
	OrderID   string        `json:"order_id"`
	Event     string        `json:"event"`
	OldStatus domain.Status `json:"old_status"`
	NewStatus domain.Status `json:"new_status"`
	CourierID string        `json:"courier_id,omitempty"`
	ChangedBy string        `json:"changed_by"`
	Version   int64         `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
}

// CheckoutOrderMessage is what the storefront checkout puts on the queue.
type CheckoutOrderMessage struct {
	OrderID       string                `json:"order_id"`
	CustomerName  string                `json:"customer_name"`
	CustomerPhone string                `json:"customer_phone"`
	Address       string                `json:"address"`
	Pickup        bool                  `json:"pickup"`
	PaymentMethod string                `json:"payment_method"`
	Discount      decimal.Decimal       `json:"discount"`
	Items         []CheckoutItemMessage `json:"items"`
}

type CheckoutItemMessage struct {
	ProductRef    string           `json:"product_ref"`
	Name          string           `json:"name"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	BuyPrice      *decimal.Decimal `json:"buy_price,omitempty"`
	Quantity      int              `json:"quantity"`
	SelectedSize  string           `json:"selected_size"`
	SelectedColor string           `json:"selected_color"`
	Images        []string         `json:"images"`
}

// LabelBatch is one print job of shipping labels.
type LabelBatch struct {
	BatchID   string          `json:"batch_id"`
	CreatedAt time.Time       `json:"created_at"`
	Labels    []ShippingLabel `json:"labels"`
}

type ShippingLabel struct {
	OrderID       string          `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Address       string          `json:"address"`
	Pickup        bool            `json:"pickup"`
	CourierID     string          `json:"courier_id,omitempty"`
	Lines         []LabelLine     `json:"lines"`
	Total         decimal.Decimal `json:"total"`
	AmountDue     decimal.Decimal `json:"amount_due"`
}

type LabelLine struct {
	Name     string `json:"name"`
	Size     string `json:"size,omitempty"`
	Color    string `json:"color,omitempty"`
	Quantity int    `json:"quantity"`
}

// Интерфейсы Messaging (Adapter/RabbitMQ, Adapter/NATS)
type EventPublisher interface {
	PublishOrderChanged(ctx context.Context, msg OrderChangedMessage) error
}

type LabelPrinter interface {
	PrintLabels(ctx context.Context, batch LabelBatch) error
}

type MessageConsumer interface {
	ConsumeCheckout(ctx context.Context, handler CheckoutMessageHandler) error
	ConsumeNotifications(ctx context.Context, handler NotificationHandler) error
}

type (
	CheckoutMessageHandler func(ctx context.Context, body []byte) error
	NotificationHandler    func(ctx context.Context, body []byte) error
)

// ErrMalformedMessage marks a delivery that can never be processed.
// Consumers dead-letter it instead of redelivering.
var ErrMalformedMessage = errors.New("malformed message")
