package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/storefront/pkg/breaker"
	"github.com/dmehra2102/storefront/pkg/config"
	"github.com/dmehra2102/storefront/pkg/httpx"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/metrics"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/postgres"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"

	catalogapp "github.com/dmehra2102/storefront/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/storefront/internal/catalog/infrastructure/http"
	catalogpg "github.com/dmehra2102/storefront/internal/catalog/infrastructure/postgres"
	catalogredis "github.com/dmehra2102/storefront/internal/catalog/infrastructure/redis"
	identityapp "github.com/dmehra2102/storefront/internal/identity/application"
	identityhttp "github.com/dmehra2102/storefront/internal/identity/infrastructure/http"
	identitypg "github.com/dmehra2102/storefront/internal/identity/infrastructure/postgres"
	"github.com/dmehra2102/storefront/internal/identity/infrastructure/token"
	orderapp "github.com/dmehra2102/storefront/internal/order/application"
	ordercatalog "github.com/dmehra2102/storefront/internal/order/infrastructure/catalog"
	orderhttp "github.com/dmehra2102/storefront/internal/order/infrastructure/http"
	orderpg "github.com/dmehra2102/storefront/internal/order/infrastructure/postgres"
	reconcilepg "github.com/dmehra2102/storefront/internal/reconcile/infrastructure/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.Tracing.Endpoint, cfg.Env, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}

	// Postgres
	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(log, cfg.Postgres.MigrationsPath, cfg.Postgres.URL); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}
	pool, err := postgres.Connect(ctx, log, cfg.Postgres.URL, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	m := metrics.New()

	// Kafka producer and outbox relay
	writer := outbox.NewKafkaWriter(cfg.Kafka.Brokers)
	dispatch := outbox.NewDispatcher(log, writer, cfg.Kafka.OrderTopic, breaker.New("kafka-outbox", log), m.OutboxDispatched)
	relay := outbox.NewRelay(log, outbox.NewPGStore(log, pool), dispatch, cfg.ServiceName+"-relay")

	// Identity
	identity := identityapp.NewService(log, identitypg.NewUserRepository(log, pool), token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
	if err := identity.BootstrapAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Error("admin bootstrap failed", "err", err)
		os.Exit(1)
	}
	auth := identityhttp.NewMiddleware(log, identity)

	// Catalog
	cache := catalogredis.NewProductCache(log, rdb, breaker.New("redis-product-cache", log), cfg.Redis.ProductTTL)
	catalog := catalogapp.NewService(log, catalogpg.NewProductRepository(log, pool), catalogpg.NewReviewRepository(log, pool), cache)

	// Orders
	orders := orderapp.NewService(log,
		orderpg.NewRepository(log, pool),
		ordercatalog.NewAdapter(catalog),
		reconcilepg.NewStore(log, pool),
		idempotency.NewStore(rdb, cfg.Redis.IdempotencyTTL),
		m,
		orderapp.Options{
			CompensationAttempts: cfg.Reservation.CompensationAttempts,
			CompensationBackoff:  cfg.Reservation.CompensationBackoff,
			AllowDefaultQuantity: cfg.Reservation.AllowDefaultQuantity,
		},
	)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router(cfg, m, pool.Ping, identityhttp.NewHandler(log, identity, auth), cataloghttp.NewHandler(log, catalog, auth), orderhttp.NewHandler(log, orders, auth)),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	go func() {
		log.Info("http listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	errs := shutdown.Run(cfg.HTTP.ShutdownTimeout,
		tp.Shutdown,
		func(context.Context) error { pool.Close(); return nil },
		func(context.Context) error { return rdb.Close() },
		func(context.Context) error { return writer.Close() },
		srv.Shutdown,
	)
	for _, err := range errs {
		log.Error("shutdown step failed", "err", err)
	}
	log.Info("storefront-api shutdown complete")
}

type routes interface{ Routes() http.Handler }

type catalogRoutes interface {
	ProductRoutes() http.Handler
	ReviewRoutes() http.Handler
}

func router(cfg *config.Config, m *metrics.Metrics, ping func(context.Context) error, identity routes, catalog catalogRoutes, orders routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "postgres": err.Error()})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))
		r.Mount("/auth", identity.Routes())
		r.Mount("/products", catalog.ProductRoutes())
		r.Mount("/reviews", catalog.ReviewRoutes())
		r.Mount("/orders", orders.Routes())
	})
	return r
}
