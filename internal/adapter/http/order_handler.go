package http

import (
	"net/http"
	"strings"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/app/order"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
	"github.com/go-chi/chi/v5"
)

// OrderHandler serves every endpoint that changes an order.
type OrderHandler struct {
	orders      interfaces.OrderService
	fulfillment interfaces.FulfillmentService
	bulk        interfaces.BulkService
	logger      logger.Logger
}

func NewOrderHandler(
	orders interfaces.OrderService,
	fulfillment interfaces.FulfillmentService,
	bulk interfaces.BulkService,
	logger logger.Logger,
) *OrderHandler {
	return &OrderHandler{
		orders:      orders,
		fulfillment: fulfillment,
		bulk:        bulk,
		logger:      logger,
	}
}

type statusRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
}

type courierRequest struct {
	CourierID string `json:"courier_id"`
	Actor     string `json:"actor"`
}

type actorRequest struct {
	Actor string `json:"actor"`
}

type tagRequest struct {
	Tag   string `json:"tag"`
	Actor string `json:"actor"`
}

type noteRequest struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

type confirmDeliveryRequest struct {
	Code string `json:"code"`
}

// editOrderRequest is a patch; absent fields stay as they are.
type editOrderRequest struct {
	Items         *[]interfaces.CheckoutItemMessage `json:"items"`
	CustomerName  *string                           `json:"customer_name"`
	CustomerPhone *string                           `json:"customer_phone"`
	Address       *string                           `json:"address"`
	Version       int64                             `json:"version"`
	Actor         string                            `json:"actor"`
}

type bulkRequest struct {
	OrderIDs  []string `json:"order_ids"`
	Operation string   `json:"operation"`
	Status    string   `json:"status"`
	Actor     string   `json:"actor"`
}

type bulkResultResponse struct {
	OrderID string        `json:"order_id"`
	OK      bool          `json:"ok"`
	Status  domain.Status `json:"status,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type bulkResponse struct {
	Operation string               `json:"operation"`
	BatchID   string               `json:"batch_id,omitempty"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Results   []bulkResultResponse `json:"results"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req interfaces.CheckoutOrderMessage
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	created, err := h.orders.CreateOrder(r.Context(), order.FromCheckoutMessage(req))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *OrderHandler) EditOrder(w http.ResponseWriter, r *http.Request) {
	var req editOrderRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	cmd := interfaces.EditOrderCommand{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		Address:         req.Address,
		ExpectedVersion: req.Version,
	}
	if req.Items != nil {
		items := order.LineItems(*req.Items)
		cmd.Items = &items
	}

	updated, err := h.fulfillment.EditOrder(r.Context(), chi.URLParam(r, "id"), cmd, req.Actor)
	h.respondOrder(w, r, updated, err)
}

func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	updated, err := h.fulfillment.Transition(r.Context(), chi.URLParam(r, "id"), parseStatus(req.Status), req.Actor)
	h.respondOrder(w, r, updated, err)
}

// Drop is the board's drag-and-drop: the target column is the new status.
func (h *OrderHandler) Drop(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	updated, err := h.fulfillment.Drop(r.Context(), chi.URLParam(r, "id"), parseStatus(req.Status), req.Actor)
	h.respondOrder(w, r, updated, err)
}

func (h *OrderHandler) AssignCourier(w http.ResponseWriter, r *http.Request) {
	var req courierRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	updated, err := h.fulfillment.AssignCourier(r.Context(), chi.URLParam(r, "id"), req.CourierID, req.Actor)
	h.respondOrder(w, r, updated, err)
}

func (h *OrderHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			respondError(w, r, h.logger, err)
			return
		}
	}
	updated, err := h.fulfillment.MarkPaid(r.Context(), chi.URLParam(r, "id"), req.Actor)
	h.respondOrder(w, r, updated, err)
}

func (h *OrderHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	updated, err := h.fulfillment.AddTag(r.Context(), chi.URLParam(r, "id"), req.Tag, req.Actor)
	h.respondOrder(w, r, updated, err)
}

func (h *OrderHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	updated, err := h.fulfillment.AddNote(r.Context(), chi.URLParam(r, "id"), req.Author, req.Text)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, updated.NotesNewestFirst())
}

func (h *OrderHandler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	var req confirmDeliveryRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	updated, err := h.fulfillment.ConfirmDelivery(r.Context(), chi.URLParam(r, "id"), req.Code)
	h.respondOrder(w, r, updated, err)
}

// Bulk always answers 200 with one result per order; partial failure is
// reported per id.
func (h *OrderHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if len(req.OrderIDs) == 0 {
		respondError(w, r, h.logger, domain.NewValidationError("order_ids", "at least one order id is required"))
		return
	}

	op := interfaces.BulkOperation{
		Kind:   interfaces.BulkKind(strings.ToLower(strings.TrimSpace(req.Operation))),
		Status: parseStatus(req.Status),
	}
	report := h.bulk.ApplyIDs(r.Context(), req.OrderIDs, op, req.Actor)

	resp := bulkResponse{
		Operation: string(report.Operation.Kind),
		BatchID:   report.BatchID,
		Results:   make([]bulkResultResponse, len(report.Results)),
	}
	for i, res := range report.Results {
		item := bulkResultResponse{OrderID: res.OrderID, OK: res.OK(), Status: res.Status}
		if res.Err != nil {
			item.Error = res.Err.Error()
			resp.Failed++
		} else {
			resp.Succeeded++
		}
		resp.Results[i] = item
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) respondOrder(w http.ResponseWriter, r *http.Request, o *domain.Order, err error) {
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func parseStatus(s string) domain.Status {
	return domain.Status(strings.ToLower(strings.TrimSpace(s)))
}
