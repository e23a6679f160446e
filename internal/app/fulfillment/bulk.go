package fulfillment

import (
	"context"
	"fmt"
	"sync"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Selection is the set of orders picked for a bulk action, in pick order.
type Selection struct {
	mu  sync.Mutex
	ids []string
}

func NewSelection(ids ...string) *Selection {
	s := &Selection{}
	for _, id := range ids {
		if !s.Contains(id) {
			s.ids = append(s.ids, id)
		}
	}
	return s
}

// Toggle adds or removes id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return false
		}
	}
	s.ids = append(s.ids, id)
	return true
}

func (s *Selection) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Retain drops every selected id that is not in visible. Call it after the
// filter changes so hidden orders are never acted on.
func (s *Selection) Retain(visible []string) {
	keep := make(map[string]struct{}, len(visible))
	for _, id := range visible {
		keep[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.ids[:0]
	for _, id := range s.ids {
		if _, ok := keep[id]; ok {
			kept = append(kept, id)
		}
	}
	s.ids = kept
}

func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
}

// Coordinator applies one operation to many orders. Every order is its own
// write; one failure never undoes or blocks the others.
type Coordinator struct {
	service     *Service
	printer     interfaces.LabelPrinter
	logger      logger.Logger
	concurrency int
}

func NewCoordinator(service *Service, printer interfaces.LabelPrinter, logger logger.Logger, concurrency int) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Coordinator{
		service:     service,
		printer:     printer,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Apply runs op over the selection and clears it once every order has a result.
func (c *Coordinator) Apply(ctx context.Context, sel *Selection, op interfaces.BulkOperation, actor string) interfaces.BulkReport {
	report := c.ApplyIDs(ctx, sel.IDs(), op, actor)
	sel.Clear()
	return report
}

func (c *Coordinator) ApplyIDs(ctx context.Context, orderIDs []string, op interfaces.BulkOperation, actor string) interfaces.BulkReport {
	ids := dedupe(orderIDs)
	report := interfaces.BulkReport{Operation: op, Results: make([]interfaces.BulkResult, len(ids))}

	switch op.Kind {
	case interfaces.BulkTransition:
		c.transitionAll(ctx, ids, op.Status, actor, report.Results)
	case interfaces.BulkPrint:
		report.BatchID = c.printAll(ctx, ids, report.Results)
	default:
		err := domain.NewValidationError("operation", fmt.Sprintf("unknown bulk operation %q", op.Kind))
		for i, id := range ids {
			report.Results[i] = interfaces.BulkResult{OrderID: id, Err: err}
		}
	}

	c.logger.Info("bulk_applied", fmt.Sprintf("Bulk %s over %d orders", op.Kind, len(ids)), logger.RequestIDFrom(ctx), map[string]interface{}{
		"operation": op.Kind,
		"status":    op.Status,
		"succeeded": len(report.Succeeded()),
		"failed":    len(report.Failed()),
		"batch_id":  report.BatchID,
	})
	return report
}

func (c *Coordinator) transitionAll(ctx context.Context, ids []string, to domain.Status, actor string, results []interfaces.BulkResult) {
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			res := interfaces.BulkResult{OrderID: id}
			order, err := c.service.Transition(ctx, id, to, actor)
			if err != nil {
				res.Err = err
			} else {
				res.Status = order.Status
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
}

// printAll reads every order, then sends the found ones as a single batch.
func (c *Coordinator) printAll(ctx context.Context, ids []string, results []interfaces.BulkResult) string {
	orders := make([]*domain.Order, len(ids))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			order, err := c.service.orders.FindByID(ctx, id)
			results[i] = interfaces.BulkResult{OrderID: id, Err: err}
			if err == nil {
				results[i].Status = order.Status
				orders[i] = order
			}
			return nil
		})
	}
	_ = g.Wait()

	batch := interfaces.LabelBatch{BatchID: uuid.NewString(), CreatedAt: c.service.now()}
	for _, o := range orders {
		if o != nil {
			batch.Labels = append(batch.Labels, BuildLabel(o))
		}
	}
	if len(batch.Labels) == 0 {
		return ""
	}

	if err := c.printer.PrintLabels(ctx, batch); err != nil {
		c.logger.Error("labels_print_failed", "Failed to send label batch", logger.RequestIDFrom(ctx), map[string]interface{}{
			"batch_id": batch.BatchID,
		}, err)
		for i := range results {
			if results[i].Err == nil {
				results[i].Err = fmt.Errorf("print batch %s: %w", batch.BatchID, err)
			}
		}
	}
	return batch.BatchID
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
