package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
)

type NotificationHandler struct {
	logger logger.Logger
	out    io.Writer
}

func NewNotificationHandler(logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		logger: logger,
		out:    os.Stdout,
	}
}

func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	var msg interfaces.OrderChangedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return fmt.Errorf("%w: %v", interfaces.ErrMalformedMessage, err)
	}

	h.logger.Debug("notification_received", fmt.Sprintf("Received %s for order %s", msg.Event, msg.OrderID),
		msg.OrderID, map[string]interface{}{
			"order_id":   msg.OrderID,
			"event":      msg.Event,
			"new_status": msg.NewStatus,
			"version":    msg.Version,
		})

	switch msg.Event {
	case interfaces.EventOrderCreated:
		fmt.Fprintf(h.out, "Notification for order %s: created with status '%s'\n", msg.OrderID, msg.NewStatus)
	case interfaces.EventOrderTransitioned:
		fmt.Fprintf(h.out, "Notification for order %s: Status changed from '%s' to '%s' by %s\n",
			msg.OrderID, msg.OldStatus, msg.NewStatus, msg.ChangedBy)
	default:
		fmt.Fprintf(h.out, "Notification for order %s: %s by %s\n", msg.OrderID, msg.Event, msg.ChangedBy)
	}

	return nil
}
