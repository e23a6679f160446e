// Package metrics derives profit, SLA and daily aggregates from orders.
// Nothing here mutates or caches; callers recompute on every read.
package metrics

import (
	"sort"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Profit for one order. Complete is false when some line has no buy price;
// those lines contribute revenue but no cost.
type Profit struct {
	Revenue       decimal.Decimal `json:"revenue"`
	Cost          decimal.Decimal `json:"cost"`
	Profit        decimal.Decimal `json:"profit"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
	Complete      bool            `json:"complete"`
}

func OrderProfit(o *domain.Order) Profit {
	p := Profit{Revenue: o.Total, Cost: decimal.Zero, Complete: true}
	for _, item := range o.Items {
		if item.BuyPrice == nil {
			p.Complete = false
			continue
		}
		p.Cost = p.Cost.Add(item.BuyPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	p.Profit = p.Revenue.Sub(p.Cost)
	p.MarginPercent = decimal.Zero
	if p.Revenue.IsPositive() {
		p.MarginPercent = p.Profit.Div(p.Revenue).Mul(hundred).Round(2)
	}
	return p
}

// countsAsRevenue excludes orders whose money went back to the customer.
func countsAsRevenue(o *domain.Order) bool {
	return o.Status != domain.StatusCancelled && o.Status != domain.StatusReturned
}

type DaySummary struct {
	Date    string          `json:"date"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

// Daily buckets orders by creation day in loc, oldest day first.
func Daily(orders []*domain.Order, loc *time.Location) []DaySummary {
	if loc == nil {
		loc = time.UTC
	}

	byDay := make(map[string]*DaySummary)
	for _, o := range orders {
		key := o.CreatedAt.In(loc).Format(time.DateOnly)
		day, ok := byDay[key]
		if !ok {
			day = &DaySummary{Date: key, Revenue: decimal.Zero, Profit: decimal.Zero}
			byDay[key] = day
		}
		day.Count++
		if countsAsRevenue(o) {
			p := OrderProfit(o)
			day.Revenue = day.Revenue.Add(p.Revenue)
			day.Profit = day.Profit.Add(p.Profit)
		}
	}

	out := make([]DaySummary, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

type SLAState string

const (
	SLAOnTrack  SLAState = "on_track"
	SLAAtRisk   SLAState = "at_risk"
	SLABreached SLAState = "breached"
	SLAClosed   SLAState = "closed"
)

// Thresholds is the maximum time an order may stay in a status.
// Statuses without an entry are never at risk.
type Thresholds map[domain.Status]time.Duration

func DefaultThresholds() Thresholds {
	return Thresholds{
		domain.StatusNew:         time.Hour,
		domain.StatusProcessing:  4 * time.Hour,
		domain.StatusReadyToShip: 24 * time.Hour,
		domain.StatusShipped:     72 * time.Hour,
	}
}

// EnteredStatus is when the order reached its current status.
func EnteredStatus(o *domain.Order) time.Time {
	for i := len(o.History) - 1; i >= 0; i-- {
		if o.History[i].ToStatus == o.Status {
			return o.History[i].Timestamp
		}
	}
	return o.CreatedAt
}

// SLA classifies the time spent in the current status. At-risk starts at 75%.
func SLA(o *domain.Order, now time.Time, thresholds Thresholds) SLAState {
	if o.Status.IsTerminal() {
		return SLAClosed
	}
	limit, ok := thresholds[o.Status]
	if !ok || limit <= 0 {
		return SLAOnTrack
	}

	elapsed := now.Sub(EnteredStatus(o))
	switch {
	case elapsed >= limit:
		return SLABreached
	case elapsed*4 >= limit*3:
		return SLAAtRisk
	default:
		return SLAOnTrack
	}
}
