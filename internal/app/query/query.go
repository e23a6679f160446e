// Package query is the read-side projection of the order store: search,
// filters and board grouping. Everything here is a pure function of its input.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/shopspring/decimal"
)

type PaymentFilter string

const (
	PaymentAny      PaymentFilter = ""
	PaymentCash     PaymentFilter = "cash"
	PaymentCard     PaymentFilter = "card"
	PaymentCashPaid PaymentFilter = "cash_paid"
	PaymentPaid     PaymentFilter = "paid"
	PaymentUnpaid   PaymentFilter = "unpaid"
)

func ParsePaymentFilter(s string) (PaymentFilter, error) {
	switch p := PaymentFilter(strings.ToLower(strings.TrimSpace(s))); p {
	case PaymentAny, PaymentCash, PaymentCard, PaymentCashPaid, PaymentPaid, PaymentUnpaid:
		return p, nil
	default:
		return PaymentAny, domain.NewValidationError("payment", fmt.Sprintf("unknown payment filter %q", s))
	}
}

func (p PaymentFilter) match(m domain.PaymentMethod) bool {
	switch p {
	case PaymentAny:
		return true
	case PaymentPaid:
		return m.Settled()
	case PaymentUnpaid:
		return !m.Settled()
	default:
		return string(p) == string(m)
	}
}

// CourierUnassigned matches orders without a courier.
const CourierUnassigned = "unassigned"

// DateRange is the half-open interval [From, To). A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// DatePreset resolves today, yesterday, week, month and all against now.
func DatePreset(preset string, now time.Time) (*DateRange, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", "all":
		return nil, nil
	case "today":
		return &DateRange{From: day, To: day.AddDate(0, 0, 1)}, nil
	case "yesterday":
		return &DateRange{From: day.AddDate(0, 0, -1), To: day}, nil
	case "week":
		return &DateRange{From: day.AddDate(0, 0, -6), To: day.AddDate(0, 0, 1)}, nil
	case "month":
		return &DateRange{From: day.AddDate(0, -1, 0), To: day.AddDate(0, 0, 1)}, nil
	default:
		return nil, domain.NewValidationError("date", fmt.Sprintf("unknown date filter %q", preset))
	}
}

// Criteria are ANDed together. Zero values match everything.
type Criteria struct {
	FreeText string
	Payment  PaymentFilter
	Date     *DateRange
	Courier  string
	Statuses []domain.Status
}

func (c Criteria) Match(o *domain.Order) bool {
	if !matchText(o, c.FreeText) {
		return false
	}
	if !c.Payment.match(o.PaymentMethod) {
		return false
	}
	if c.Date != nil && !c.Date.Contains(o.CreatedAt) {
		return false
	}
	switch c.Courier {
	case "":
	case CourierUnassigned:
		if o.CourierID != "" {
			return false
		}
	default:
		if o.CourierID != c.Courier {
			return false
		}
	}
	if len(c.Statuses) > 0 && !containsStatus(c.Statuses, o.Status) {
		return false
	}
	return true
}

func matchText(o *domain.Order, text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(o.ID), needle) ||
		strings.Contains(strings.ToLower(o.CustomerName), needle) ||
		strings.Contains(strings.ToLower(o.CustomerPhone), needle) {
		return true
	}
	for _, item := range o.Items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			return true
		}
	}
	return false
}

func containsStatus(list []domain.Status, s domain.Status) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Query filters orders, keeping their original order.
func Query(orders []*domain.Order, c Criteria) []*domain.Order {
	out := make([]*domain.Order, 0, len(orders))
	for _, o := range orders {
		if c.Match(o) {
			out = append(out, o)
		}
	}
	return out
}

type Summary struct {
	Count        int             `json:"count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

func Summarize(orders []*domain.Order) Summary {
	s := Summary{TotalRevenue: decimal.Zero}
	for _, o := range orders {
		s.Count++
		s.TotalRevenue = s.TotalRevenue.Add(o.Total)
	}
	return s
}

type Column struct {
	Status  domain.Status   `json:"status"`
	Orders  []*domain.Order `json:"orders"`
	Summary Summary         `json:"summary"`
}

// Board has one column per status, in domain.Statuses order.
type Board struct {
	Columns []Column `json:"columns"`
}

func (b Board) Column(s domain.Status) (Column, bool) {
	for _, c := range b.Columns {
		if c.Status == s {
			return c, true
		}
	}
	return Column{}, false
}

func GroupByStatus(orders []*domain.Order) Board {
	byStatus := make(map[domain.Status][]*domain.Order, len(domain.Statuses))
	for _, o := range orders {
		byStatus[o.Status] = append(byStatus[o.Status], o)
	}

	board := Board{Columns: make([]Column, 0, len(domain.Statuses))}
	for _, s := range domain.Statuses {
		list := byStatus[s]
		if list == nil {
			list = []*domain.Order{}
		}
		board.Columns = append(board.Columns, Column{Status: s, Orders: list, Summary: Summarize(list)})
	}
	return board
}
