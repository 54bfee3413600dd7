package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/reviewregistry/internal/config"
	"github.com/utafrali/reviewregistry/internal/event"
	handler "github.com/utafrali/reviewregistry/internal/handler/http"
	kafkaledger "github.com/utafrali/reviewregistry/internal/ledger/kafka"
	ledgermem "github.com/utafrali/reviewregistry/internal/ledger/memory"
	oraclemem "github.com/utafrali/reviewregistry/internal/oracle/memory"
	oraclepg "github.com/utafrali/reviewregistry/internal/oracle/postgres"
	oracleredis "github.com/utafrali/reviewregistry/internal/oracle/redis"
	"github.com/utafrali/reviewregistry/internal/oracle/remote"
	"github.com/utafrali/reviewregistry/internal/registry"
	"github.com/utafrali/reviewregistry/internal/service"
	"github.com/utafrali/reviewregistry/pkg/database"
	"github.com/utafrali/reviewregistry/pkg/health"
	pkgkafka "github.com/utafrali/reviewregistry/pkg/kafka"
	"github.com/utafrali/reviewregistry/pkg/middleware"
	"github.com/utafrali/reviewregistry/pkg/tracing"
)

const idempotencyPrefix = "registry:processed_event:"

// App wires together all dependencies and runs the review registry.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	service    *service.ReviewService
	health     *health.Handler
	httpServer *http.Server
	limiter    *middleware.RateLimiter

	pool      *pgxpool.Pool
	redis     *goredis.Client
	producer  *pkgkafka.Producer
	dlq       *pkgkafka.DLQProducer
	feeLedger *kafkaledger.Ledger
	consumers []*pkgkafka.Consumer

	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Anything opened before a failure is closed again.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger, health: health.NewHandler()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if a.shutdownTracer, err = tracing.InitTracer(initCtx, cfg.Tracing()); err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	database.SetSlowQueryLogging(cfg.SlowQuery, logger)

	if cfg.UsesKafka() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.health.Register("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	tokens, projection, err := a.tokenOracle(initCtx)
	if err != nil {
		return nil, err
	}
	businesses, err := a.businessDirectory(initCtx)
	if err != nil {
		return nil, err
	}

	var ledger registry.FeeLedger = ledgermem.NewLedger(logger)
	if cfg.FeeLedger == config.AdapterKafka {
		lcfg := kafkaledger.DefaultConfig()
		lcfg.QueueSize = cfg.FeeQueueSize
		a.feeLedger = kafkaledger.NewLedger(a.producer, lcfg, logger)
		ledger = a.feeLedger
	}

	reg := registry.New(cfg.BootstrapPrincipal, tokens, businesses, ledger, cfg.RegistryOptions()...)

	var events service.EventPublisher
	if cfg.ReviewEvents {
		events = event.NewProducer(a.producer, logger)
	}
	a.service = service.NewReviewService(reg, events, logger)

	if cfg.TokenProjection {
		a.projectionConsumers(projection)
	}

	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute, logger)
	router := handler.NewRouter(a.service, a.health, logger, handler.RouterConfig{
		ServiceName:  config.ServiceName,
		JWTSecret:    cfg.JWTSecret,
		WriteLimiter: a.limiter,
		PprofCIDRs:   cfg.PprofAllowedCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// tokenOracle builds the configured token verifier and, for local stores,
// the writable projection behind it.
func (a *App) tokenOracle(ctx context.Context) (registry.TokenVerifier, event.TokenStore, error) {
	switch a.cfg.TokenOracle {
	case config.AdapterRedis:
		client, err := database.NewRedisClient(ctx, a.cfg.Redis(), a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		store := oracleredis.NewTokenStore(client)
		a.health.Register("redis", store.Ping)
		return store, store, nil
	case config.AdapterRemote:
		a.logger.Info("verifying purchase tokens remotely", slog.String("url", a.cfg.PurchaseServiceURL))
		return remote.NewDefaultTokenVerifier(a.cfg.PurchaseServiceURL, a.cfg.PurchaseClient(), a.logger), nil, nil
	default:
		store := oraclemem.NewTokenStore()
		return store, store, nil
	}
}

func (a *App) businessDirectory(ctx context.Context) (registry.BusinessDirectory, error) {
	if a.cfg.BusinessOracle != config.AdapterPostgres {
		return oraclemem.NewBusinessSet(a.cfg.SeedBusinesses...), nil
	}

	pgCfg := a.cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, config.ServiceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}
	a.health.Register("postgres", pool.Ping)

	if a.cfg.RunMigrations {
		if err := oraclepg.Migrate(ctx, pool, a.logger); err != nil {
			return nil, fmt.Errorf("migrate business directory: %w", err)
		}
	}

	dir := oraclepg.NewBusinessDirectory(pool)
	for _, id := range a.cfg.SeedBusinesses {
		if err := dir.Register(ctx, id, ""); err != nil {
			return nil, fmt.Errorf("seed business %d: %w", id, err)
		}
	}
	return dir, nil
}

// projectionConsumers creates one consumer per purchase-token topic.
// Duplicates are filtered through Redis when it is available.
func (a *App) projectionConsumers(store event.TokenStore) {
	var idem pkgkafka.IdempotencyStore
	if a.redis != nil {
		idem = pkgkafka.NewRedisIdempotencyStore(a.redis, idempotencyPrefix, a.cfg.IdempotencyTTL)
	} else {
		idem = pkgkafka.NewMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	}
	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)

	consumer := event.NewConsumer(store, a.logger)
	for topic, h := range consumer.Handlers() {
		a.consumers = append(a.consumers, pkgkafka.NewConsumer(
			pkgkafka.ConsumerConfig{
				Brokers:  a.cfg.KafkaBrokers,
				GroupID:  a.cfg.KafkaConsumerGroup,
				Topic:    topic,
				MinBytes: 1,
				MaxBytes: 10 << 20,
			},
			pkgkafka.IdempotentHandler(idem, h, a.logger),
			a.logger,
			pkgkafka.WithDLQ(a.dlq),
		))
	}
}

// Run starts the HTTP server, Kafka consumers and the fee ledger worker, and
// blocks until ctx is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// The ledger outlives the HTTP server so in-flight submissions can
	// still enqueue their debit.
	ledgerCtx, stopLedger := context.WithCancel(context.Background())
	defer stopLedger()

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		err := a.httpServer.Shutdown(shutdownCtx)
		stopLedger()
		if err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	for _, c := range a.consumers {
		g.Go(func() error { return c.Start(gctx) })
	}

	if a.feeLedger != nil {
		g.Go(func() error { return a.feeLedger.Start(ledgerCtx) })
	}

	err := g.Wait()
	a.close()
	return err
}

// close releases every opened resource. It is safe on a partially built App.
func (a *App) close() {
	if a.limiter != nil {
		a.limiter.Close()
	}
	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
	a.logger.Info("application shutdown complete")
}
