package order

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
)

type Service struct {
	repo      interfaces.OrderRepository
	publisher interfaces.EventPublisher
	logger    logger.Logger
	now       func() time.Time
	codes     func() (string, error)
}

func NewService(repo interfaces.OrderRepository, publisher interfaces.EventPublisher, logger logger.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		codes:     VerificationCode,
	}
}

// VerificationCode returns a random 4-digit code for the delivery handshake.
func VerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

func (s *Service) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	requestID := logger.RequestIDFrom(ctx)

	// 1. Номер заказа: берём от checkout или выдаём свой
	id := strings.TrimSpace(cmd.OrderID)
	if id == "" {
		next, err := s.repo.NextID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to generate order id: %w", err)
		}
		id = next
	}

	code, err := s.codes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	// 2. Создание доменной сущности (валидация и расчет суммы)
	payment := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(cmd.PaymentMethod)))
	if payment == domain.PaymentCashPaid {
		return nil, domain.NewValidationError("payment_method", "payment method must be one of: cash, card")
	}
	contact := domain.Contact{
		Name:    cmd.CustomerName,
		Phone:   cmd.CustomerPhone,
		Address: cmd.Address,
		Pickup:  cmd.Pickup,
	}

	order, err := domain.NewOrder(id, contact, cmd.Items, payment, cmd.Discount, code, s.now())
	if err != nil {
		s.logger.Warn("validation_failed", "Order validation failed", requestID, map[string]interface{}{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}

	// 3. Сохранение
	if err := s.repo.Create(ctx, order); err != nil {
		s.logger.Error("db_transaction_failed", "Failed to create order", requestID, nil, err)
		return nil, err
	}
	s.logger.Info("order_created", fmt.Sprintf("Order %s created", order.ID), requestID, map[string]interface{}{
		"order_id": order.ID,
		"total":    order.Total.String(),
		"items":    len(order.Items),
	})

	// 4. Уведомление подписчиков; заказ уже сохранён, поэтому ошибку только логируем
	msg := interfaces.OrderChangedMessage{
		OrderID:   order.ID,
		Event:     interfaces.EventOrderCreated,
		NewStatus: order.Status,
		ChangedBy: "checkout",
		Version:   order.Version,
		Timestamp: order.CreatedAt,
	}
	if err := s.publisher.PublishOrderChanged(ctx, msg); err != nil {
		s.logger.Error("publish_failed", "Failed to publish order creation", requestID, map[string]interface{}{
			"order_id": order.ID,
		}, err)
	}

	return order, nil
}

// FromCheckoutMessage converts a queued checkout payload into a command.
func FromCheckoutMessage(msg interfaces.CheckoutOrderMessage) interfaces.CreateOrderCommand {
	return interfaces.CreateOrderCommand{
		OrderID:       msg.OrderID,
		CustomerName:  msg.CustomerName,
		CustomerPhone: msg.CustomerPhone,
		Address:       msg.Address,
		Pickup:        msg.Pickup,
		PaymentMethod: msg.PaymentMethod,
		Discount:      msg.Discount,
		Items:         LineItems(msg.Items),
	}
}

func LineItems(items []interfaces.CheckoutItemMessage) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	for i, item := range items {
		out[i] = domain.LineItem{
			ProductRef:    item.ProductRef,
			Name:          item.Name,
			UnitPrice:     item.UnitPrice,
			BuyPrice:      item.BuyPrice,
			Quantity:      item.Quantity,
			SelectedSize:  item.SelectedSize,
			SelectedColor: item.SelectedColor,
			Images:        item.Images,
		}
	}
	return out
}
