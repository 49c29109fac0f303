package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/server"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/service"

	_ "github.com/lib/pq"
)

type eventPublisher interface {
	service.OrderEventPublisher
	service.PaymentEventPublisher
}

type stores struct {
	carts    repository.CartRepository
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	catalog  repository.CatalogRepository
}

func main() {
	cfg := config.Load()
	logging.SetLevel(cfg.LogLevel)

	logger := logging.NewLoggerV2("fulfillment-service")
	logging.Infof("Starting fulfillment-service on port %d", cfg.Server.Port)

	readiness := map[string]handlers.ReadinessCheck{}

	var st stores
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		logger.Warn("Using in-memory storage; data is lost on restart")
		mem := repository.NewMemoryStore()
		st = stores{carts: mem, orders: mem, payments: mem, catalog: mem}
	default:
		db, err := initDatabase(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to database", logging.Fields{"error": err.Error()})
		}
		defer db.Close()

		if cfg.Database.RunMigrations {
			if err := repository.RunMigrations(db); err != nil {
				logger.Fatal("Failed to run migrations", logging.Fields{"error": err.Error()})
			}
		}

		st = stores{
			carts:    repository.NewPostgresCartRepository(db, logger),
			orders:   repository.NewPostgresOrderRepository(db, logger),
			payments: repository.NewPostgresPaymentRepository(db, logger),
			catalog:  repository.NewPostgresCatalogRepository(db),
		}
		readiness["database"] = db.PingContext
	}

	// orderCache stays an untyped nil when caching is off.
	var orderCache repository.OrderCache
	if cfg.Features.EnableOrderCaching {
		redisCache := repository.NewRedisOrderCache(cfg.Redis)
		defer redisCache.Close()
		orderCache = redisCache
		readiness["redis"] = redisCache.Ping
	}

	var publisher eventPublisher = events.NopPublisher{}
	if cfg.Features.EnableOrderEvents {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	cartService := service.NewCartService(st.carts)
	orderService := service.NewOrderService(st.orders, st.carts, st.catalog, orderCache, publisher, m, cfg)
	paymentService := service.NewPaymentService(st.payments, st.orders, publisher, m, cfg)

	h := handlers.NewHandlers(cartService, orderService, paymentService, readiness, cfg)
	srv := server.New(h, cfg, m)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":                    cfg.Server.Port,
			"storage_driver":          cfg.StorageDriver,
			"enable_order_caching":    cfg.Features.EnableOrderCaching,
			"enable_order_events":     cfg.Features.EnableOrderEvents,
			"enable_payment_consumer": cfg.Features.EnablePaymentConsumer,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	var consumer *events.KafkaConsumer
	if cfg.Features.EnablePaymentConsumer {
		consumer = events.NewKafkaConsumer(cfg.Kafka, paymentService, logger)
		go func() {
			if err := consumer.Start(consumerCtx); err != nil {
				logger.Error("Payment consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if consumer != nil {
		consumer.Stop()
	}
	stopConsumer()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited")
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	logging.Info("Database connected", logging.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})

	return db, nil
}
