package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	reconnectDelay = 5 * time.Second

	requeueDelay    = 500 * time.Millisecond
	maxRequeueDelay = 30 * time.Second
)

type Consumer struct {
	conn     Connection
	prefetch int
	logger   logger.Logger
	backoff  *requeueBackoff
}

func NewConsumer(conn Connection, prefetch int, lgr logger.Logger) *Consumer {
	return &Consumer{
		conn:     conn,
		prefetch: prefetch,
		logger:   lgr,
		backoff:  &requeueBackoff{base: requeueDelay, max: maxRequeueDelay},
	}
}

// requeueBackoff doubles the hold time for each consecutive transient
// failure. Only the checkout loop uses it, so it needs no lock.
type requeueBackoff struct {
	base, max time.Duration
	failures  int
}

func (b *requeueBackoff) next() time.Duration {
	b.failures++
	d := b.base
	for i := 1; i < b.failures && d < b.max; i++ {
		d *= 2
	}
	return min(d, b.max)
}

func (b *requeueBackoff) reset() {
	b.failures = 0
}

func (c *Consumer) ConsumeCheckout(ctx context.Context, handler interfaces.CheckoutMessageHandler) error {
	return c.withReconnect(ctx, "checkout", func(ctx context.Context) error {
		return c.consumeCheckout(ctx, handler)
	})
}

func (c *Consumer) ConsumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	return c.withReconnect(ctx, "notifications", func(ctx context.Context) error {
		return c.consumeNotifications(ctx, handler)
	})
}

// withReconnect keeps run alive until ctx is cancelled, waiting
// reconnectDelay between attempts.
func (c *Consumer) withReconnect(ctx context.Context, name string, run func(context.Context) error) error {
	for {
		err := run(ctx)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		c.logger.Error("consumer_disconnected", fmt.Sprintf("%s consumer disconnected, reconnecting in %s", name, reconnectDelay), "", map[string]interface{}{
			"consumer": name,
		}, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Consumer) consumeCheckout(ctx context.Context, handler interfaces.CheckoutMessageHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	if err := SetupCheckoutTopology(ch); err != nil {
		return err
	}

	msgs, err := ch.Consume(QueueCheckout, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}
			c.settle(ctx, msg, handler(ctx, msg.Body))
		}
	}
}

// acknowledger is the part of amqp.Delivery settle needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle holds a transiently failed delivery for the backoff delay before
// requeueing it. With prefetch bounding unacked messages this also throttles
// redelivery while a dependency is down.
func (c *Consumer) settle(ctx context.Context, msg acknowledger, err error) {
	switch {
	case err == nil:
		c.backoff.reset()
		_ = msg.Ack(false)
	case ShouldRequeue(err):
		delay := c.backoff.next()
		c.logger.Warn("checkout_requeue", fmt.Sprintf("Requeueing checkout message in %s", delay), "", map[string]interface{}{
			"error":    err.Error(),
			"failures": c.backoff.failures,
		})
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
		_ = msg.Nack(false, true)
	default:
		// dead-lettered through x-dead-letter-exchange
		_ = msg.Nack(false, false)
	}
}

// ShouldRequeue is false for messages that would fail the same way again.
func ShouldRequeue(err error) bool {
	return !errors.Is(err, interfaces.ErrMalformedMessage) &&
		!errors.Is(err, domain.ErrValidation) &&
		!errors.Is(err, domain.ErrAlreadyExists)
}

func (c *Consumer) consumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.ExchangeDeclare(ExchangeNotifications, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Each subscriber gets its own temporary queue
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", ExchangeNotifications, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}
			if err := handler(ctx, msg.Body); err != nil {
				c.logger.Warn("notification_skipped", "Failed to handle notification", "", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// SetupCheckoutTopology declares the checkout queue bound to the orders
// exchange together with its dead-letter queue.
func SetupCheckoutTopology(ch Channel) error {
	if err := ch.ExchangeDeclare(ExchangeOrders, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare orders exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeDeadLetter, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueCheckoutDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}
	if err := ch.QueueBind(QueueCheckoutDLQ, "#", ExchangeDeadLetter, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange": ExchangeDeadLetter,
	}
	q, err := ch.QueueDeclare(QueueCheckout, true, false, false, false, args)
	if err != nil {
		return fmt.Errorf("failed to declare checkout queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, CheckoutBindingKey, ExchangeOrders, false, nil); err != nil {
		return fmt.Errorf("failed to bind checkout queue: %w", err)
	}
	return nil
}
