// Package loopback stands in for a broker when none is configured. Order
// changes and label batches are written to the log instead.
package loopback

import (
	"context"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
)

type Publisher struct {
	logger logger.Logger
}

func NewPublisher(lgr logger.Logger) *Publisher {
	return &Publisher{logger: lgr}
}

func (p *Publisher) PublishOrderChanged(ctx context.Context, msg interfaces.OrderChangedMessage) error {
	p.logger.Info("order_changed", "Order change recorded", logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id":   msg.OrderID,
		"event":      msg.Event,
		"old_status": msg.OldStatus,
		"new_status": msg.NewStatus,
		"version":    msg.Version,
		"changed_by": msg.ChangedBy,
	})
	return nil
}

func (p *Publisher) PrintLabels(ctx context.Context, batch interfaces.LabelBatch) error {
	ids := make([]string, 0, len(batch.Labels))
	for _, l := range batch.Labels {
		ids = append(ids, l.OrderID)
	}
	p.logger.Info("labels_printed", "Label batch recorded", logger.RequestIDFrom(ctx), map[string]interface{}{
		"batch_id": batch.BatchID,
		"orders":   ids,
	})
	return nil
}
