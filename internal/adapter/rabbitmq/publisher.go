package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends order changes to the fanout exchange and label batches
// to the print queue.
type Publisher struct {
	conn Connection
}

func NewPublisher(conn Connection) *Publisher {
	return &Publisher{conn: conn}
}

func (p *Publisher) PublishOrderChanged(ctx context.Context, msg interfaces.OrderChangedMessage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ExchangeNotifications, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = ch.PublishWithContext(ctx, ExchangeNotifications, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Type:        msg.Event,
		MessageId:   fmt.Sprintf("%s:%d", msg.OrderID, msg.Version),
		Timestamp:   msg.Timestamp,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish order change: %w", err)
	}

	return nil
}

func (p *Publisher) PrintLabels(ctx context.Context, batch interfaces.LabelBatch) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ExchangeLabels, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	// Durable queue so batches wait for the label printer if it is offline
	if _, err := ch.QueueDeclare(QueueLabels, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare labels queue: %w", err)
	}
	if err := ch.QueueBind(QueueLabels, LabelsRoutingKey, ExchangeLabels, false, nil); err != nil {
		return fmt.Errorf("failed to bind labels queue: %w", err)
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal label batch: %w", err)
	}

	err = ch.PublishWithContext(ctx, ExchangeLabels, LabelsRoutingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    batch.BatchID,
		Timestamp:    batch.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish label batch: %w", err)
	}

	return nil
}
