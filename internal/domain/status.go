package domain

import "time"

type Status string

const (
	StatusNew         Status = "new"
	StatusProcessing  Status = "processing"
	StatusReadyToShip Status = "ready_to_ship"
	StatusShipped     Status = "shipped"
	StatusDelivered   Status = "delivered"
	StatusCancelled   Status = "cancelled"
	StatusReturned    Status = "returned"
)

// Statuses lists every status in board column order.
var Statuses = []Status{
	StatusNew,
	StatusProcessing,
	StatusReadyToShip,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusReturned,
}

// AllowedTransitions is the fulfillment flow. Terminal statuses have no outgoing edges.
var AllowedTransitions = map[Status][]Status{
	StatusNew:         {StatusProcessing, StatusCancelled},
	StatusProcessing:  {StatusReadyToShip, StatusCancelled},
	StatusReadyToShip: {StatusShipped, StatusCancelled},
	StatusShipped:     {StatusDelivered, StatusCancelled, StatusReturned},
	StatusDelivered:   {},
	StatusCancelled:   {},
	StatusReturned:    {},
}

var allowedTransitionSet = buildTransitionSet(AllowedTransitions)

func buildTransitionSet(transitions map[Status][]Status) map[Status]map[Status]struct{} {
	set := make(map[Status]map[Status]struct{}, len(transitions))
	for from, tos := range transitions {
		next := make(map[Status]struct{}, len(tos))
		for _, to := range tos {
			next[to] = struct{}{}
		}
		set[from] = next
	}
	return set
}

// CanTransition reports whether from -> to is an edge of the flow.
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitionSet[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

func (s Status) Valid() bool {
	_, ok := AllowedTransitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusReturned
}

// AllowsCourier reports whether an order in this status may carry a courier.
func (s Status) AllowsCourier() bool {
	return s == StatusReadyToShip || s == StatusShipped || s == StatusDelivered
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentCashPaid PaymentMethod = "cash_paid"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentCard || p == PaymentCashPaid
}

// Settled is false only for cash orders nobody has marked paid yet.
func (p PaymentMethod) Settled() bool {
	return p != PaymentCash
}

// HistoryEntry is one audit event on an order. Entries are never edited.
type HistoryEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Actor       string    `json:"actor"`
	FromStatus  Status    `json:"from_status,omitempty"`
	ToStatus    Status    `json:"to_status,omitempty"`
}

// ManagerNote is one message in the internal collaboration thread.
type ManagerNote struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
