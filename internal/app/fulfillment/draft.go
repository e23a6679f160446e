package fulfillment

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
)

// Draft is a detached working copy of an order's editable fields.
// Nothing is visible to other readers until Commit.
type Draft struct {
	OrderID       string
	Items         []domain.LineItem
	CustomerName  string
	CustomerPhone string
	Address       string

	version int64
}

func (s *Service) OpenDraft(ctx context.Context, orderID string) (*Draft, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("order in %s status cannot be edited", order.Status))
	}

	// FindByID hands out a copy, the draft owns it
	return &Draft{
		OrderID:       order.ID,
		Items:         order.Items,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Address:       order.Address,
		version:       order.Version,
	}, nil
}

// Version is the order version the draft was opened at.
func (d *Draft) Version() int64 {
	return d.version
}

func (d *Draft) item(i int) (*domain.LineItem, error) {
	if i < 0 || i >= len(d.Items) {
		return nil, domain.NewValidationError("items", fmt.Sprintf("no item at position %d", i))
	}
	return &d.Items[i], nil
}

func (d *Draft) SetQuantity(i, quantity int) error {
	item, err := d.item(i)
	if err != nil {
		return err
	}
	if quantity < 1 {
		return domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "item quantity must be at least 1")
	}
	item.Quantity = quantity
	return nil
}

func (d *Draft) Increment(i int) error {
	item, err := d.item(i)
	if err != nil {
		return err
	}
	item.Quantity++
	return nil
}

// Decrement lowers the quantity by one and stops at 1.
func (d *Draft) Decrement(i int) error {
	item, err := d.item(i)
	if err != nil {
		return err
	}
	if item.Quantity > 1 {
		item.Quantity--
	}
	return nil
}

func (d *Draft) AddItem(item domain.LineItem) {
	d.Items = append(d.Items, item)
}

// RemoveItem refuses to drop the last remaining line.
func (d *Draft) RemoveItem(i int) error {
	if _, err := d.item(i); err != nil {
		return err
	}
	if len(d.Items) == 1 {
		return domain.NewValidationError("items", "order must contain at least 1 item")
	}
	d.Items = append(d.Items[:i], d.Items[i+1:]...)
	return nil
}

func (d *Draft) SetContact(name, phone, address string) {
	d.CustomerName = name
	d.CustomerPhone = phone
	d.Address = address
}

// Command turns the draft into a full-replacement patch pinned to its version.
func (d *Draft) Command() interfaces.EditOrderCommand {
	items := d.Items
	name, phone, address := d.CustomerName, d.CustomerPhone, d.Address
	return interfaces.EditOrderCommand{
		Items:           &items,
		CustomerName:    &name,
		CustomerPhone:   &phone,
		Address:         &address,
		ExpectedVersion: d.version,
	}
}

// Commit writes the whole draft at once. It fails with domain.ErrStaleDraft
// when the order changed after the draft was opened.
func (s *Service) Commit(ctx context.Context, d *Draft, actor string) (*domain.Order, error) {
	order, err := s.EditOrder(ctx, d.OrderID, d.Command(), actor)
	if err != nil {
		return nil, err
	}
	d.version = order.Version
	return order, nil
}
