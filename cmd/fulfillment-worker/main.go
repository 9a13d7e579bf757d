package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/config"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/inmem"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/kafka"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/logger"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/metrics"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/migrate"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/postgres"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/postgres/repository"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/usecase/fulfillment"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}
	// Reading config
	cfg := config.MustLoad()

	zl := logger.MustInit(cfg.LogConfig.LogLevel, cfg.LogConfig.LogFormat)
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Order store: postgres when a DSN is configured, otherwise in-memory
	// (local smoke runs).
	var store domain.OrderStore
	var audit logger.OrderEventLogger = logger.NopOrderEventLogger{}
	if cfg.OrderDB.Dsn != "" {
		db := postgres.MustInitDB(cfg)
		if cfg.OrderDB.MigrationsPath != "" {
			if err := migrate.RunMigrations(db, cfg.OrderDB.MigrationsPath); err != nil {
				zl.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewDefaultOrderRepository(db)
		audit = logger.NewPGOrderEventLogger(db)
	} else {
		zl.Warn("no order_db dsn configured, using in-memory store")
		store = inmem.NewInMemoryOrderStore()
	}

	broker := kafka.NewKafkaBroker(kafka.Config{
		Brokers:         []string{fmt.Sprintf("%s:%s", cfg.KafkaService.Host, cfg.KafkaService.Port)},
		GroupID:         cfg.KafkaService.GroupID,
		OrderTopic:      cfg.KafkaService.OrderTopic,
		PaymentTopic:    cfg.KafkaService.PaymentTopic,
		DeadLetterTopic: cfg.KafkaService.DeadLetterTopic,
	}, zl)

	pipelineMetrics := metrics.NewPipelineMetrics()

	guard := fulfillment.NewLeaseGuard(store, cfg.Pipeline.LeaseTimeout, zl)
	go guard.StartSweeper(ctx, cfg.Pipeline.LeaseSweepInterval)

	dispatcher := fulfillment.NewDispatcher(
		cfg.Pipeline.OrderWorkers,
		cfg.Pipeline.PaymentWorkers,
		fulfillment.ConsumerDeps{
			Broker:  broker,
			Store:   store,
			Guard:   guard,
			Audit:   audit,
			Metrics: pipelineMetrics,
			Logger:  zl,
		},
		fulfillment.ConsumerOptions{
			MaxAttempts: cfg.Pipeline.MaxAttempts,
			Backoff: fulfillment.BackoffPolicy{
				Base: cfg.Pipeline.RetryBaseDelay,
				Cap:  cfg.Pipeline.RetryMaxDelay,
			},
			InFlightDelay: cfg.Pipeline.InFlightRequeueDelay,
		},
		zl,
	)
	dispatcher.Start(ctx)

	// Prometheus exposition
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.MetricsServer.Host, cfg.MetricsServer.Port)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			zl.Error("metrics server stopped", zap.Error(err))
		}
	}()

	zl.Info("fulfillment worker started",
		zap.Int("order_workers", cfg.Pipeline.OrderWorkers),
		zap.Int("payment_workers", cfg.Pipeline.PaymentWorkers))

	<-ctx.Done()
	zl.Info("shutdown signal received, draining")
	dispatcher.Drain()
	if err := broker.Close(); err != nil {
		zl.Error("failed to close broker", zap.Error(err))
	}
	zl.Info("fulfillment worker stopped")
}
