package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/config"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
	"github.com/nats-io/nats.go"
)

const (
	connectAttempts = 3
	retryDelay      = time.Second
	flushTimeout    = 2 * time.Second
)

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

type Publisher struct {
	nc         conn
	raw        *nats.Conn
	prefix     string
	maxRetries int
	retryDelay time.Duration
	logger     logger.Logger
}

func NewPublisher(ctx context.Context, cfg config.NATSConfig, lgr logger.Logger) (*Publisher, error) {
	dial := func() (*nats.Conn, error) {
		return nats.Connect(cfg.URL,
			nats.Name("fulfillment"),
			nats.MaxReconnects(5),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				lgr.Warn("nats_disconnected", "NATS disconnected", "", map[string]interface{}{
					"error": fmt.Sprint(err),
				})
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				lgr.Info("nats_reconnected", "NATS reconnected", "", map[string]interface{}{
					"url": nc.ConnectedUrl(),
				})
			}),
		)
	}

	nc, err := dialWithRetry(ctx, dial, retryDelay, lgr)
	if err != nil {
		return nil, err
	}

	lgr.Info("nats_connected", "Connected to NATS", "", map[string]interface{}{"url": cfg.URL})
	p := newPublisher(nc, cfg, lgr)
	p.raw = nc
	return p, nil
}

// dialWithRetry makes up to connectAttempts dials, waiting delay between
// them but not after the last one.
func dialWithRetry(ctx context.Context, dial func() (*nats.Conn, error), delay time.Duration, lgr logger.Logger) (*nats.Conn, error) {
	var err error
	for i := 0; i < connectAttempts; i++ {
		var nc *nats.Conn
		nc, err = dial()
		if err == nil {
			return nc, nil
		}

		lgr.Warn("nats_connect_failed", "Failed to connect to NATS", "", map[string]interface{}{
			"attempt": i + 1,
			"error":   err.Error(),
		})

		if i == connectAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("failed to connect to NATS after %d attempts: %w", connectAttempts, err)
}

func newPublisher(nc conn, cfg config.NATSConfig, lgr logger.Logger) *Publisher {
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &Publisher{
		nc:         nc,
		prefix:     strings.Trim(cfg.SubjectPrefix, "."),
		maxRetries: retries,
		retryDelay: retryDelay,
		logger:     lgr,
	}
}

// EventSubject maps "order.transitioned" to "<prefix>.order.transitioned".
func (p *Publisher) EventSubject(event string) string {
	return p.subject(event)
}

func (p *Publisher) LabelsSubject() string {
	return p.subject("labels.print")
}

func (p *Publisher) subject(s string) string {
	if p.prefix == "" {
		return s
	}
	return p.prefix + "." + s
}

func (p *Publisher) PublishOrderChanged(ctx context.Context, msg interfaces.OrderChangedMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.publish(ctx, p.EventSubject(msg.Event), data)
}

func (p *Publisher) PrintLabels(ctx context.Context, batch interfaces.LabelBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal label batch: %w", err)
	}
	return p.publish(ctx, p.LabelsSubject(), data)
}

func (p *Publisher) publish(ctx context.Context, subject string, data []byte) error {
	var lastErr error

	for i := 0; i < p.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.retryDelay):
			}
		}

		if err := p.nc.Publish(subject, data); err != nil {
			lastErr = err
			p.logger.Warn("nats_publish_failed", "Failed to publish to NATS", "", map[string]interface{}{
				"subject": subject,
				"attempt": i + 1,
				"error":   err.Error(),
			})
			continue
		}
		if err := p.nc.FlushTimeout(flushTimeout); err != nil {
			lastErr = err
			p.logger.Warn("nats_flush_failed", "Failed to flush NATS connection", "", map[string]interface{}{
				"subject": subject,
				"error":   err.Error(),
			})
			continue
		}
		return nil
	}

	return fmt.Errorf("publish %s after %d attempts: %w", subject, p.maxRetries, lastErr)
}

func (p *Publisher) Close() {
	if p.raw != nil && p.raw.IsConnected() {
		p.raw.Close()
		p.logger.Info("nats_closed", "NATS connection closed", "", nil)
	}
}
