// Package fulfillment holds every write path of an order after checkout:
// status transitions, courier assignment, payment, tags, notes, edits and
// bulk operations. All of them go through OrderRepository.Update.
package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
	"github.com/google/uuid"
)

type Service struct {
	orders    interfaces.OrderRepository
	couriers  interfaces.CourierRepository
	publisher interfaces.EventPublisher
	logger    logger.Logger
	now       func() time.Time
}

func NewService(
	orders interfaces.OrderRepository,
	couriers interfaces.CourierRepository,
	publisher interfaces.EventPublisher,
	logger logger.Logger,
) *Service {
	return &Service{
		orders:    orders,
		couriers:  couriers,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// update runs fn inside a single-order write and publishes the change
// when something was actually written.
func (s *Service) update(ctx context.Context, orderID, event, actor string, fn interfaces.MutateFunc) (*domain.Order, error) {
	var (
		from    domain.Status
		changed bool
	)

	order, err := s.orders.Update(ctx, orderID, func(o *domain.Order) error {
		from = o.Status
		changed = false
		if err := fn(o); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.publish(ctx, order, event, from, actor)
	}
	return order, nil
}

func (s *Service) publish(ctx context.Context, order *domain.Order, event string, from domain.Status, actor string) {
	msg := interfaces.OrderChangedMessage{
		OrderID:   order.ID,
		Event:     event,
		OldStatus: from,
		NewStatus: order.Status,
		CourierID: order.CourierID,
		ChangedBy: actor,
		Version:   order.Version,
		Timestamp: s.now(),
	}

	// Изменение уже сохранено, ошибка публикации только логируется
	if err := s.publisher.PublishOrderChanged(ctx, msg); err != nil {
		s.logger.Error("publish_failed", "Failed to publish order change", logger.RequestIDFrom(ctx), map[string]interface{}{
			"order_id": order.ID,
			"event":    event,
		}, err)
	}
}

func (s *Service) Transition(ctx context.Context, orderID string, to domain.Status, actor string) (*domain.Order, error) {
	if !to.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", to))
	}
	actor = actorOrSystem(actor)

	order, err := s.update(ctx, orderID, interfaces.EventOrderTransitioned, actor, func(o *domain.Order) error {
		return o.TransitionTo(to, actor, s.now())
	})
	if err != nil {
		s.logger.Warn("transition_rejected", fmt.Sprintf("Order %s cannot move to %s", orderID, to), logger.RequestIDFrom(ctx), map[string]interface{}{
			"order_id": orderID,
			"target":   to,
			"error":    err.Error(),
		})
		return nil, err
	}

	s.logger.Info("order_transitioned", fmt.Sprintf("Order %s is %s", orderID, order.Status), logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id": orderID,
		"status":   order.Status,
		"actor":    actor,
	})
	return order, nil
}

// Drop is the board's drag-and-drop entry point. It never picks a
// different column than the one the order was dropped on.
func (s *Service) Drop(ctx context.Context, orderID string, column domain.Status, actor string) (*domain.Order, error) {
	s.logger.Debug("board_drop", fmt.Sprintf("Order %s dropped on %s", orderID, column), logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id": orderID,
		"column":   column,
	})
	return s.Transition(ctx, orderID, column, actor)
}

func (s *Service) AssignCourier(ctx context.Context, orderID, courierID, actor string) (*domain.Order, error) {
	courierID = strings.TrimSpace(courierID)
	if courierID == "" {
		return nil, domain.NewValidationError("courier_id", "courier id is required")
	}
	if _, err := s.couriers.FindByID(ctx, courierID); err != nil {
		return nil, err
	}
	actor = actorOrSystem(actor)

	order, err := s.update(ctx, orderID, interfaces.EventCourierAssigned, actor, func(o *domain.Order) error {
		return o.AssignCourier(courierID, actor, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("courier_assigned", fmt.Sprintf("Courier %s assigned to order %s", courierID, orderID), logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id":   orderID,
		"courier_id": courierID,
		"status":     order.Status,
	})
	return order, nil
}

func (s *Service) MarkPaid(ctx context.Context, orderID, actor string) (*domain.Order, error) {
	actor = actorOrSystem(actor)
	order, err := s.update(ctx, orderID, interfaces.EventOrderPaid, actor, func(o *domain.Order) error {
		return o.MarkPaid(actor, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_paid", fmt.Sprintf("Order %s marked paid", orderID), logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id": orderID,
	})
	return order, nil
}

func (s *Service) AddTag(ctx context.Context, orderID, tag, actor string) (*domain.Order, error) {
	order, err := s.update(ctx, orderID, interfaces.EventOrderTagged, actorOrSystem(actor), func(o *domain.Order) error {
		return o.AddTag(tag)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("order_tagged", fmt.Sprintf("Order %s tagged", orderID), logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id": orderID,
		"tags":     order.Tags,
	})
	return order, nil
}

func (s *Service) AddNote(ctx context.Context, orderID, author, text string) (*domain.Order, error) {
	note := domain.ManagerNote{
		ID:        uuid.NewString(),
		Author:    actorOrSystem(author),
		Text:      text,
		Timestamp: s.now(),
	}

	order, err := s.update(ctx, orderID, interfaces.EventNoteAdded, note.Author, func(o *domain.Order) error {
		return o.AddNote(note)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("note_added", fmt.Sprintf("Note added to order %s", orderID), logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id": orderID,
		"note_id":  note.ID,
		"author":   note.Author,
	})
	return order, nil
}

// EditOrder applies the patch to the current order in one write.
func (s *Service) EditOrder(ctx context.Context, orderID string, cmd interfaces.EditOrderCommand, actor string) (*domain.Order, error) {
	actor = actorOrSystem(actor)

	order, err := s.update(ctx, orderID, interfaces.EventOrderEdited, actor, func(o *domain.Order) error {
		if cmd.ExpectedVersion != 0 && cmd.ExpectedVersion != o.Version {
			return fmt.Errorf("order %s at version %d, draft at %d: %w", o.ID, o.Version, cmd.ExpectedVersion, domain.ErrStaleDraft)
		}

		items := o.Items
		if cmd.Items != nil {
			items = *cmd.Items
		}
		contact := domain.Contact{Name: o.CustomerName, Phone: o.CustomerPhone, Address: o.Address, Pickup: o.Pickup}
		if cmd.CustomerName != nil {
			contact.Name = *cmd.CustomerName
		}
		if cmd.CustomerPhone != nil {
			contact.Phone = *cmd.CustomerPhone
		}
		if cmd.Address != nil {
			contact.Address = *cmd.Address
		}

		return o.ApplyEdit(items, contact, actor, s.now())
	})
	if err != nil {
		s.logger.Warn("edit_rejected", fmt.Sprintf("Edit of order %s rejected", orderID), logger.RequestIDFrom(ctx), map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
		return nil, err
	}

	s.logger.Info("order_edited", fmt.Sprintf("Order %s edited", orderID), logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id": orderID,
		"total":    order.Total.String(),
		"version":  order.Version,
	})
	return order, nil
}

// ConfirmDelivery is the customer handshake: a matching verification code
// moves the order to delivered on the customer's behalf.
func (s *Service) ConfirmDelivery(ctx context.Context, orderID, code string) (*domain.Order, error) {
	const actor = "customer"

	order, err := s.update(ctx, orderID, interfaces.EventOrderTransitioned, actor, func(o *domain.Order) error {
		if strings.TrimSpace(code) == "" || strings.TrimSpace(code) != o.VerificationCode {
			return domain.NewValidationError("verification_code", "verification code does not match")
		}
		return o.TransitionTo(domain.StatusDelivered, actor, s.now())
	})
	if err != nil {
		s.logger.Warn("delivery_confirmation_failed", fmt.Sprintf("Delivery of order %s not confirmed", orderID), logger.RequestIDFrom(ctx), map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
		return nil, err
	}

	s.logger.Info("delivery_confirmed", fmt.Sprintf("Order %s delivered", orderID), logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id": orderID,
	})
	return order, nil
}

func actorOrSystem(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return "system"
}
