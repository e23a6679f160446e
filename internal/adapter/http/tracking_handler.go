package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/app/metrics"
	"github.com/YelzhanWeb/fulfillment/internal/app/query"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
	"github.com/go-chi/chi/v5"
)

// TrackingHandler serves the read side: lists, board, single order views,
// couriers and reports.
type TrackingHandler struct {
	service interfaces.TrackingService
	logger  logger.Logger
	now     func() time.Time
}

func NewTrackingHandler(service interfaces.TrackingService, logger logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

type profitResponse struct {
	OrderID    string           `json:"order_id"`
	Profit     metrics.Profit   `json:"profit"`
	SLA        metrics.SLAState `json:"sla"`
	AgeSeconds int64            `json:"age_seconds"`
}

type courierResponse struct {
	CourierID    string `json:"courier_id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	ActiveOrders int    `json:"active_orders"`
}

func (h *TrackingHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r, h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	orders, err := h.service.Query(r.Context(), criteria)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *TrackingHandler) Board(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r, h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	board, err := h.service.Board(r.Context(), criteria)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, board)
}

func (h *TrackingHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *TrackingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.GetHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (h *TrackingHandler) GetNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.GetNotes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, notes)
}

func (h *TrackingHandler) GetProfit(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetProfit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, profitResponse{
		OrderID:    result.OrderID,
		Profit:     result.Profit,
		SLA:        result.SLA,
		AgeSeconds: int64(result.Age / time.Second),
	})
}

func (h *TrackingHandler) GetCouriers(w http.ResponseWriter, r *http.Request) {
	couriers, err := h.service.GetCouriers(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp := make([]courierResponse, len(couriers))
	for i, c := range couriers {
		resp[i] = courierResponse{
			CourierID:    c.CourierID,
			Name:         c.Name,
			Phone:        c.Phone,
			ActiveOrders: c.ActiveOrders,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// DailyReport groups by calendar day in the ?tz= location, UTC by default.
func (h *TrackingHandler) DailyReport(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			respondError(w, r, h.logger, domain.NewValidationError("tz", "unknown time zone"))
			return
		}
		loc = l
	}

	days, err := h.service.DailyReport(r.Context(), loc)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, days)
}

// parseCriteria reads q, payment, date, from, to, courier and status.
// An explicit from/to replaces the date preset.
func parseCriteria(r *http.Request, now time.Time) (query.Criteria, error) {
	params := r.URL.Query()

	payment, err := query.ParsePaymentFilter(params.Get("payment"))
	if err != nil {
		return query.Criteria{}, err
	}

	criteria := query.Criteria{
		FreeText: params.Get("q"),
		Payment:  payment,
		Courier:  strings.TrimSpace(params.Get("courier")),
	}

	from, to := params.Get("from"), params.Get("to")
	if from != "" || to != "" {
		var rng query.DateRange
		if rng.From, err = parseTime("from", from); err != nil {
			return query.Criteria{}, err
		}
		if rng.To, err = parseTime("to", to); err != nil {
			return query.Criteria{}, err
		}
		criteria.Date = &rng
	} else {
		criteria.Date, err = query.DatePreset(params.Get("date"), now)
		if err != nil {
			return query.Criteria{}, err
		}
	}

	if raw := params.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := parseStatus(s)
			if status == "" {
				continue
			}
			if !status.Valid() {
				return query.Criteria{}, domain.NewValidationError("status", "unknown status "+string(status))
			}
			criteria.Statuses = append(criteria.Statuses, status)
		}
	}

	return criteria, nil
}

// parseTime accepts RFC 3339 or a bare 2006-01-02 date (midnight UTC).
func parseTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, domain.NewValidationError(field, "expected RFC 3339 time or YYYY-MM-DD date")
}
