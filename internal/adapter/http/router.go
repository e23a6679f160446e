package http

import (
	"net/http"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/go-chi/chi/v5"
)

func NewRouter(orders *OrderHandler, tracking *TrackingHandler, lgr logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware(lgr))
	r.Use(RecoveryMiddleware(lgr))

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", tracking.ListOrders)
		r.Post("/", orders.CreateOrder)
		r.Get("/board", tracking.Board)
		r.Post("/bulk", orders.Bulk)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", tracking.GetOrder)
			r.Patch("/", orders.EditOrder)
			r.Post("/transition", orders.Transition)
			r.Post("/drop", orders.Drop)
			r.Post("/courier", orders.AssignCourier)
			r.Post("/paid", orders.MarkPaid)
			r.Post("/tags", orders.AddTag)
			r.Get("/notes", tracking.GetNotes)
			r.Post("/notes", orders.AddNote)
			r.Get("/history", tracking.GetHistory)
			r.Get("/profit", tracking.GetProfit)
			r.Post("/confirm-delivery", orders.ConfirmDelivery)
		})
	})

	r.Get("/couriers", tracking.GetCouriers)
	r.Get("/reports/daily", tracking.DailyReport)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
