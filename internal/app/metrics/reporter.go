package metrics

import (
	"context"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/app/query"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
)

type OrderLister interface {
	List(ctx context.Context) ([]*domain.Order, error)
}

// Snapshot is what the reporter computes on each tick.
type Snapshot struct {
	Board    query.Board
	Breached []string
	AtRisk   []string
}

// Reporter periodically recomputes board summaries and SLA breaches and logs them.
// It only reads from the store.
type Reporter struct {
	orders     OrderLister
	logger     logger.Logger
	interval   time.Duration
	thresholds Thresholds
	now        func() time.Time
}

func NewReporter(orders OrderLister, lgr logger.Logger, intervalSeconds int, thresholds Thresholds) *Reporter {
	return &Reporter{
		orders:     orders,
		logger:     lgr,
		interval:   time.Duration(intervalSeconds) * time.Second,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Run blocks until ctx is done. A zero interval disables the loop.
func (r *Reporter) Run(ctx context.Context) error {
	if r.interval <= 0 {
		r.logger.Info("metrics_disabled", "Metrics reporter disabled", "", nil)
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Report(ctx); err != nil {
				r.logger.Error("metrics_failed", "Failed to recompute metrics", "", nil, err)
			}
		}
	}
}

// Report runs one recompute and logs the result.
func (r *Reporter) Report(ctx context.Context) (Snapshot, error) {
	orders, err := r.orders.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	now := r.now()
	snap := Snapshot{Board: query.GroupByStatus(orders)}
	for _, o := range orders {
		switch SLA(o, now, r.thresholds) {
		case SLABreached:
			snap.Breached = append(snap.Breached, o.ID)
		case SLAAtRisk:
			snap.AtRisk = append(snap.AtRisk, o.ID)
		}
	}

	columns := make(map[string]interface{}, len(snap.Board.Columns))
	for _, c := range snap.Board.Columns {
		columns[string(c.Status)] = map[string]interface{}{
			"count":         c.Summary.Count,
			"total_revenue": c.Summary.TotalRevenue.String(),
		}
	}
	r.logger.Debug("metrics_recomputed", "Board summary recomputed", "", columns)

	if len(snap.Breached) > 0 {
		r.logger.Warn("sla_breached", "Orders over their status time limit", "", map[string]interface{}{
			"order_ids": snap.Breached,
		})
	}

	return snap, nil
}
