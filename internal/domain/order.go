package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a customer purchase moving through fulfillment.
type Order struct {
	ID               string          `json:"id"`
	CustomerName     string          `json:"customer_name"`
	CustomerPhone    string          `json:"customer_phone"`
	Address          string          `json:"address"`
	Pickup           bool            `json:"pickup"`
	Items            []LineItem      `json:"items"`
	Discount         decimal.Decimal `json:"discount"`
	Total            decimal.Decimal `json:"total"`
	Status           Status          `json:"status"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	CourierID        string          `json:"courier_id,omitempty"`
	VerificationCode string          `json:"verification_code"`
	Tags             []string        `json:"tags"`
	ManagerNotes     []ManagerNote   `json:"manager_notes"`
	History          []HistoryEntry  `json:"history"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"date"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// LineItem is one product line. BuyPrice is the purchase cost when known.
type LineItem struct {
	ProductRef    string           `json:"product_ref"`
	Name          string           `json:"name"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	BuyPrice      *decimal.Decimal `json:"buy_price,omitempty"`
	Quantity      int              `json:"quantity"`
	SelectedSize  string           `json:"selected_size"`
	SelectedColor string           `json:"selected_color"`
	Images        []string         `json:"images"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Contact groups the mutable customer fields.
type Contact struct {
	Name    string
	Phone   string
	Address string
	Pickup  bool
}

// NewOrder builds an order in the new status with a single "created" history entry.
func NewOrder(id string, contact Contact, items []LineItem, payment PaymentMethod, discount decimal.Decimal, code string, now time.Time) (*Order, error) {
	order := &Order{
		ID:               id,
		CustomerName:     strings.TrimSpace(contact.Name),
		CustomerPhone:    strings.TrimSpace(contact.Phone),
		Address:          strings.TrimSpace(contact.Address),
		Pickup:           contact.Pickup,
		Items:            cloneItems(items),
		Discount:         discount,
		Status:           StatusNew,
		PaymentMethod:    payment,
		VerificationCode: code,
		Tags:             []string{},
		ManagerNotes:     []ManagerNote{},
		History:          []HistoryEntry{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	order.CalculateTotal()
	order.appendHistory(HistoryEntry{
		Timestamp:   now,
		Description: "order created",
		Actor:       "checkout",
		ToStatus:    StatusNew,
	})

	return order, nil
}

// Validate applies the rules every stored order must satisfy.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return NewValidationError("id", "order id is required")
	}
	if !o.Status.Valid() {
		return NewValidationError("status", fmt.Sprintf("unknown status %q", o.Status))
	}
	if !o.PaymentMethod.Valid() {
		return NewValidationError("payment_method", "payment method must be one of: cash, card")
	}
	if o.Discount.IsNegative() {
		return NewValidationError("discount", "discount must not be negative")
	}
	if !isCents(o.Discount) {
		return NewValidationError("discount", "discount must have at most 2 decimal places")
	}
	if err := validateContact(Contact{Name: o.CustomerName, Phone: o.CustomerPhone, Address: o.Address, Pickup: o.Pickup}); err != nil {
		return err
	}
	return ValidateItems(o.Items)
}

func validateContact(c Contact) error {
	if c.Pickup {
		return nil
	}
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("customer_name", "customer name is required for delivery orders")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return NewValidationError("customer_phone", "customer phone is required for delivery orders")
	}
	if strings.TrimSpace(c.Address) == "" {
		return NewValidationError("address", "address is required for delivery orders")
	}
	return nil
}

// ValidateItems rejects an empty list, quantities below one and negative prices.
func ValidateItems(items []LineItem) error {
	if len(items) == 0 {
		return NewValidationError("items", "order must contain at least 1 item")
	}
	for i, item := range items {
		prefix := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.Name) == "" {
			return NewValidationError(prefix+".name", "item name is required")
		}
		if item.Quantity < 1 {
			return NewValidationError(prefix+".quantity", "item quantity must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			return NewValidationError(prefix+".unit_price", "item price must not be negative")
		}
		if !isCents(item.UnitPrice) {
			return NewValidationError(prefix+".unit_price", "item price must have at most 2 decimal places")
		}
		if item.BuyPrice != nil && item.BuyPrice.IsNegative() {
			return NewValidationError(prefix+".buy_price", "buy price must not be negative")
		}
		if item.BuyPrice != nil && !isCents(*item.BuyPrice) {
			return NewValidationError(prefix+".buy_price", "buy price must have at most 2 decimal places")
		}
	}
	return nil
}

// isCents reports whether d fits the NUMERIC(12,2) money columns unrounded.
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// CalculateTotal recomputes Total from Items minus Discount, never below zero.
func (o *Order) CalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	total = total.Sub(o.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.Total = total
}

// TransitionTo moves the order along one edge of the flow.
// Returns ErrUnchanged when the order is already in the target status.
func (o *Order) TransitionTo(to Status, actor string, at time.Time) error {
	if o.Status == to {
		return ErrUnchanged
	}
	if !CanTransition(o.Status, to) {
		return &TransitionError{From: o.Status, To: to}
	}

	from := o.Status
	o.Status = to
	o.UpdatedAt = at
	o.appendHistory(HistoryEntry{
		Timestamp:   at,
		Description: fmt.Sprintf("status changed from %s to %s", from, to),
		Actor:       actor,
		FromStatus:  from,
		ToStatus:    to,
	})

	if o.CourierID != "" && !to.AllowsCourier() {
		released := o.CourierID
		o.CourierID = ""
		o.appendHistory(HistoryEntry{
			Timestamp:   at,
			Description: fmt.Sprintf("courier %s released", released),
			Actor:       actor,
		})
	}

	return nil
}

// AssignCourier sets the courier. An order still in processing is advanced
// to ready_to_ship in the same step.
func (o *Order) AssignCourier(courierID, actor string, at time.Time) error {
	courierID = strings.TrimSpace(courierID)
	if courierID == "" {
		return NewValidationError("courier_id", "courier id is required")
	}

	switch {
	case o.Status == StatusProcessing:
	case o.Status == StatusReadyToShip || o.Status == StatusShipped:
		if o.CourierID == courierID {
			return ErrUnchanged
		}
	default:
		return &TransitionError{From: o.Status, To: StatusReadyToShip}
	}

	previous := o.CourierID
	o.CourierID = courierID
	o.UpdatedAt = at

	description := fmt.Sprintf("courier %s assigned", courierID)
	if previous != "" {
		description = fmt.Sprintf("courier changed from %s to %s", previous, courierID)
	}
	o.appendHistory(HistoryEntry{Timestamp: at, Description: description, Actor: actor})

	if o.Status == StatusProcessing {
		o.Status = StatusReadyToShip
		o.appendHistory(HistoryEntry{
			Timestamp:   at,
			Description: fmt.Sprintf("status changed from %s to %s", StatusProcessing, StatusReadyToShip),
			Actor:       actor,
			FromStatus:  StatusProcessing,
			ToStatus:    StatusReadyToShip,
		})
	}

	return nil
}

// MarkPaid settles a cash order.
func (o *Order) MarkPaid(actor string, at time.Time) error {
	if o.PaymentMethod.Settled() {
		return fmt.Errorf("order %s paid by %s: %w", o.ID, o.PaymentMethod, ErrAlreadySettled)
	}
	o.PaymentMethod = PaymentCashPaid
	o.UpdatedAt = at
	o.appendHistory(HistoryEntry{Timestamp: at, Description: "cash payment received", Actor: actor})
	return nil
}

// AddTag adds a label. Tags are a set; adding an existing tag is a no-op.
func (o *Order) AddTag(tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return NewValidationError("tag", "tag must not be empty")
	}
	for _, t := range o.Tags {
		if strings.EqualFold(t, tag) {
			return ErrUnchanged
		}
	}
	o.Tags = append(o.Tags, tag)
	return nil
}

// AddNote appends to the manager thread.
func (o *Order) AddNote(note ManagerNote) error {
	note.Text = strings.TrimSpace(note.Text)
	if note.Text == "" {
		return NewValidationError("text", "note text must not be empty")
	}
	o.ManagerNotes = append(o.ManagerNotes, note)
	return nil
}

// ApplyEdit replaces items and contact fields in one step. Nothing is
// modified when validation fails.
func (o *Order) ApplyEdit(items []LineItem, contact Contact, actor string, at time.Time) error {
	if o.Status.IsTerminal() {
		return NewValidationError("status", fmt.Sprintf("order in %s status cannot be edited", o.Status))
	}
	if err := ValidateItems(items); err != nil {
		return err
	}
	contact.Pickup = o.Pickup
	if err := validateContact(contact); err != nil {
		return err
	}

	o.Items = cloneItems(items)
	o.CustomerName = strings.TrimSpace(contact.Name)
	o.CustomerPhone = strings.TrimSpace(contact.Phone)
	o.Address = strings.TrimSpace(contact.Address)
	o.CalculateTotal()
	o.UpdatedAt = at
	o.appendHistory(HistoryEntry{Timestamp: at, Description: "order details edited", Actor: actor})
	return nil
}

// NotesNewestFirst returns a copy of the thread in reverse insertion order.
func (o *Order) NotesNewestFirst() []ManagerNote {
	notes := make([]ManagerNote, len(o.ManagerNotes))
	for i, n := range o.ManagerNotes {
		notes[len(notes)-1-i] = n
	}
	return notes
}

// AmountDue is what the courier must collect on delivery.
func (o *Order) AmountDue() decimal.Decimal {
	if o.PaymentMethod.Settled() {
		return decimal.Zero
	}
	return o.Total
}

// LastChange is the time of the most recent history entry.
func (o *Order) LastChange() time.Time {
	if len(o.History) == 0 {
		return o.CreatedAt
	}
	return o.History[len(o.History)-1].Timestamp
}

// appendHistory keeps timestamps monotonic within one order.
func (o *Order) appendHistory(entry HistoryEntry) {
	if n := len(o.History); n > 0 && entry.Timestamp.Before(o.History[n-1].Timestamp) {
		entry.Timestamp = o.History[n-1].Timestamp
	}
	o.History = append(o.History, entry)
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = cloneItems(o.Items)
	c.Tags = append([]string{}, o.Tags...)
	c.ManagerNotes = append([]ManagerNote{}, o.ManagerNotes...)
	c.History = append([]HistoryEntry{}, o.History...)
	return &c
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.BuyPrice != nil {
			bp := *item.BuyPrice
			out[i].BuyPrice = &bp
		}
		out[i].Images = append([]string{}, item.Images...)
	}
	return out
}
