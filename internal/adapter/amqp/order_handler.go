package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/app/order"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
)

// CheckoutHandler turns checkout messages from the storefront into orders.
type CheckoutHandler struct {
	service interfaces.OrderService
	logger  logger.Logger
}

func NewCheckoutHandler(service interfaces.OrderService, logger logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger,
	}
}

func (h *CheckoutHandler) HandleCheckout(ctx context.Context, body []byte) error {
	var msg interfaces.CheckoutOrderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse checkout message", "", nil, err)
		return fmt.Errorf("%w: %v", interfaces.ErrMalformedMessage, err)
	}

	_, err := h.service.CreateOrder(ctx, order.FromCheckoutMessage(msg))
	if errors.Is(err, domain.ErrAlreadyExists) {
		// redelivery of a checkout that was already stored
		h.logger.Info("checkout_duplicate", fmt.Sprintf("Order %s already exists, skipping", msg.OrderID), msg.OrderID, nil)
		return nil
	}
	return err
}
