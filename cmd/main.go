package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/adapter/loopback"
	"github.com/YelzhanWeb/fulfillment/internal/adapter/memory"
	"github.com/YelzhanWeb/fulfillment/internal/adapter/postgres"
	"github.com/YelzhanWeb/fulfillment/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/fulfillment/internal/app/fulfillment"
	"github.com/YelzhanWeb/fulfillment/internal/app/metrics"
	"github.com/YelzhanWeb/fulfillment/internal/app/order"
	"github.com/YelzhanWeb/fulfillment/internal/app/tracking"
	"github.com/YelzhanWeb/fulfillment/internal/config"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
	"golang.org/x/sync/errgroup"

	amqpAdapter "github.com/YelzhanWeb/fulfillment/internal/adapter/amqp"
	httpAdapter "github.com/YelzhanWeb/fulfillment/internal/adapter/http"
	natsAdapter "github.com/YelzhanWeb/fulfillment/internal/adapter/nats"
)

// infra is everything the services need from the outside world.
type infra struct {
	orders    interfaces.OrderRepository
	couriers  interfaces.CourierRepository
	publisher interfaces.EventPublisher
	printer   interfaces.LabelPrinter
	consumer  interfaces.MessageConsumer
	closers   []func()
}

func (i *infra) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		i.closers[n]()
	}
}

func main() {
	// Parse command-line flags
	mode := flag.String("mode", "order-service", "Service mode: order-service, notification-subscriber")
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	lgr := logger.New(*mode, logger.WithLevel(logger.ParseLevel(cfg.Log.Level)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "order-service":
		err = runOrderService(ctx, cfg, lgr)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, lgr)
	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		lgr.Error("service_failed", "Service stopped with error", "shutdown", nil, err)
		os.Exit(1)
	}
	lgr.Info("service_stopped", "Service stopped", "shutdown", nil)
}

func setupInfra(ctx context.Context, cfg *config.Config, lgr logger.Logger) (*infra, error) {
	in := &infra{}

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		in.closers = append(in.closers, db.Close)
		lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
			"host": cfg.Database.Host,
			"db":   cfg.Database.Database,
		})

		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				in.Close()
				return nil, err
			}
		}
		in.orders = postgres.NewOrderRepository(db)
		in.couriers = postgres.NewCourierRepository(db)
	default:
		in.orders = memory.NewOrderRepository()
		in.couriers = memory.NewCourierRepository()
		lgr.Warn("memory_storage", "Orders are kept in memory and lost on restart", "startup", nil)
	}

	if err := seedCouriers(ctx, in.couriers, cfg.Couriers); err != nil {
		in.Close()
		return nil, err
	}

	switch cfg.Broker.Driver {
	case config.BrokerRabbitMQ:
		conn, err := rabbitmq.Connect(cfg.RabbitMQ)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.closers = append(in.closers, func() { _ = conn.Close() })
		lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
			"host": cfg.RabbitMQ.Host,
		})

		pub := rabbitmq.NewPublisher(conn)
		in.publisher, in.printer = pub, pub
		in.consumer = rabbitmq.NewConsumer(conn, cfg.RabbitMQ.Prefetch, lgr)
	case config.BrokerNATS:
		pub, err := natsAdapter.NewPublisher(ctx, cfg.NATS, lgr)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.closers = append(in.closers, pub.Close)
		in.publisher, in.printer = pub, pub
	default:
		pub := loopback.NewPublisher(lgr)
		in.publisher, in.printer = pub, pub
	}

	return in, nil
}

func seedCouriers(ctx context.Context, repo interfaces.CourierRepository, seeds []config.CourierConfig) error {
	for _, s := range seeds {
		courier, err := domain.NewCourier(s.ID, s.Name, s.Phone)
		if err != nil {
			return fmt.Errorf("courier %q: %w", s.ID, err)
		}
		if err := repo.Create(ctx, courier); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("failed to seed courier %s: %w", s.ID, err)
		}
	}
	return nil
}

// slaThresholds keys the configured durations by status, skipping names
// that are not statuses.
func slaThresholds(cfg config.MetricsConfig) metrics.Thresholds {
	th := metrics.Thresholds{}
	for name, d := range cfg.SLA() {
		if s := domain.Status(name); s.Valid() {
			th[s] = d
		}
	}
	return th
}

func runOrderService(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	in, err := setupInfra(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer in.Close()

	thresholds := slaThresholds(cfg.Metrics)

	// Initialize services
	orderService := order.NewService(in.orders, in.publisher, lgr)
	fulfillmentService := fulfillment.NewService(in.orders, in.couriers, in.publisher, lgr)
	coordinator := fulfillment.NewCoordinator(fulfillmentService, in.printer, lgr, cfg.Fulfillment.BulkConcurrency)
	trackingService := tracking.NewService(in.orders, in.couriers, lgr, thresholds)
	reporter := metrics.NewReporter(in.orders, lgr, cfg.Metrics.IntervalSeconds, thresholds)

	// Initialize HTTP handlers
	handler := httpAdapter.NewRouter(
		httpAdapter.NewOrderHandler(orderService, fulfillmentService, coordinator, lgr),
		httpAdapter.NewTrackingHandler(trackingService, lgr),
		lgr,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lgr.Info("service_started", fmt.Sprintf("Order Service started on port %d", cfg.HTTP.Port), "startup", map[string]interface{}{
			"port":    cfg.HTTP.Port,
			"storage": cfg.Storage.Driver,
			"broker":  cfg.Broker.Driver,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		lgr.Info("shutdown_initiated", "Shutting down Order Service", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return reporter.Run(ctx)
	})

	if in.consumer != nil {
		checkout := amqpAdapter.NewCheckoutHandler(orderService, lgr)
		g.Go(func() error {
			return in.consumer.ConsumeCheckout(ctx, checkout.HandleCheckout)
		})
	}

	return g.Wait()
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	if cfg.Broker.Driver != config.BrokerRabbitMQ {
		return fmt.Errorf("notification-subscriber needs broker.driver %q, got %q", config.BrokerRabbitMQ, cfg.Broker.Driver)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer conn.Close()

	consumer := rabbitmq.NewConsumer(conn, 1, lgr)
	notificationHandler := amqpAdapter.NewNotificationHandler(lgr)

	lgr.Info("service_started", "Notification Subscriber started", "startup", nil)
	return consumer.ConsumeNotifications(ctx, notificationHandler.HandleNotification)
}
