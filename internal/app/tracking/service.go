package tracking

import (
	"context"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/app/metrics"
	"github.com/YelzhanWeb/fulfillment/internal/app/query"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
)

// Service is the read-only side. Every call recomputes from the store.
type Service struct {
	orderRepo   interfaces.OrderRepository
	courierRepo interfaces.CourierRepository
	logger      logger.Logger
	thresholds  metrics.Thresholds
	now         func() time.Time
}

func NewService(orderRepo interfaces.OrderRepository, courierRepo interfaces.CourierRepository, logger logger.Logger, thresholds metrics.Thresholds) *Service {
	if thresholds == nil {
		thresholds = metrics.DefaultThresholds()
	}
	return &Service{
		orderRepo:   orderRepo,
		courierRepo: courierRepo,
		logger:      logger,
		thresholds:  thresholds,
		now:         time.Now,
	}
}

func (s *Service) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orderRepo.List(ctx)
}

func (s *Service) Query(ctx context.Context, criteria query.Criteria) ([]*domain.Order, error) {
	orders, err := s.orderRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return query.Query(orders, criteria), nil
}

func (s *Service) Board(ctx context.Context, criteria query.Criteria) (query.Board, error) {
	orders, err := s.Query(ctx, criteria)
	if err != nil {
		return query.Board{}, err
	}
	return query.GroupByStatus(orders), nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orderRepo.FindByID(ctx, orderID)
}

func (s *Service) GetHistory(ctx context.Context, orderID string) ([]domain.HistoryEntry, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return order.History, nil
}

// GetNotes returns the manager thread newest first.
func (s *Service) GetNotes(ctx context.Context, orderID string) ([]domain.ManagerNote, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return order.NotesNewestFirst(), nil
}

func (s *Service) GetProfit(ctx context.Context, orderID string) (*interfaces.OrderProfitResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &interfaces.OrderProfitResponse{
		OrderID: order.ID,
		Profit:  metrics.OrderProfit(order),
		SLA:     metrics.SLA(order, now, s.thresholds),
		Age:     now.Sub(metrics.EnteredStatus(order)),
	}, nil
}

// GetCouriers lists the directory with each courier's current load.
// The count is informational and never limits assignment.
func (s *Service) GetCouriers(ctx context.Context) ([]*interfaces.CourierResponse, error) {
	couriers, err := s.courierRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	load := make(map[string]int)
	for _, o := range orders {
		if domain.CountsTowardLoad(o) {
			load[o.CourierID]++
		}
	}

	resp := make([]*interfaces.CourierResponse, 0, len(couriers))
	for _, c := range couriers {
		resp = append(resp, &interfaces.CourierResponse{
			CourierID:    c.ID,
			Name:         c.Name,
			Phone:        c.Phone,
			ActiveOrders: load[c.ID],
		})
	}
	return resp, nil
}

func (s *Service) DailyReport(ctx context.Context, loc *time.Location) ([]metrics.DaySummary, error) {
	orders, err := s.orderRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return metrics.Daily(orders, loc), nil
}
