package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/storefront/pkg/breaker"
	"github.com/dmehra2102/storefront/pkg/config"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/metrics"
	"github.com/dmehra2102/storefront/pkg/postgres"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"

	catalogredis "github.com/dmehra2102/storefront/internal/catalog/infrastructure/redis"
	"github.com/dmehra2102/storefront/internal/reconcile/application"
	reconcilegrpc "github.com/dmehra2102/storefront/internal/reconcile/infrastructure/grpc"
	reconcilekafka "github.com/dmehra2102/storefront/internal/reconcile/infrastructure/kafka"
	reconcilepg "github.com/dmehra2102/storefront/internal/reconcile/infrastructure/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With("service", "stock-reconciler")

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "stock-reconciler", cfg.Tracing.Endpoint, cfg.Env, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}

	pool, err := postgres.Connect(ctx, log, cfg.Postgres.URL, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	idem := idempotency.NewStore(rdb, cfg.Redis.DedupTTL)
	cache := catalogredis.NewProductCache(log, rdb, breaker.New("redis-product-cache", log), cfg.Redis.ProductTTL)

	m := metrics.New()
	svc := application.NewService(log, reconcilepg.NewStore(log, pool), cache, m, cfg.Reconciler.Workers)

	metricsSrv := &http.Server{Addr: cfg.Reconciler.MetricsAddr, Handler: m.Handler(), ReadTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "err", err)
		}
	}()

	health := reconcilegrpc.NewServer(log)
	if err := health.Run(cfg.Reconciler.GRPCAddr); err != nil {
		log.Error("grpc server failed", "err", err)
		os.Exit(1)
	}

	go svc.RunSweeper(ctx, cfg.Reconciler.SweepInterval)

	reader := reconcilekafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.ReconcilerGroup)
	consumer := reconcilekafka.NewConsumer(log, reader, svc, idem)
	health.SetServing(true)
	log.Info("stock reconciler consuming", "topic", cfg.Kafka.OrderTopic, "group", cfg.Kafka.ReconcilerGroup)

	if err := consumer.Run(ctx); err != nil {
		log.Error("consumer stopped", "err", err)
	}
	health.SetServing(false)

	errs := shutdown.Run(10*time.Second,
		tp.Shutdown,
		func(context.Context) error { pool.Close(); return nil },
		func(context.Context) error { return rdb.Close() },
		func(context.Context) error { return health.Close() },
		metricsSrv.Shutdown,
	)
	for _, err := range errs {
		log.Error("shutdown step failed", "err", err)
	}
	log.Info("stock-reconciler shutdown complete")
}
