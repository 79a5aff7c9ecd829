package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Opkumar/Book-Review-System/internal/auth"
	"github.com/Opkumar/Book-Review-System/internal/cache"
	"github.com/Opkumar/Book-Review-System/internal/config"
	"github.com/Opkumar/Book-Review-System/internal/event"
	handler "github.com/Opkumar/Book-Review-System/internal/handler/http"
	"github.com/Opkumar/Book-Review-System/internal/repository"
	"github.com/Opkumar/Book-Review-System/internal/repository/memory"
	"github.com/Opkumar/Book-Review-System/internal/repository/postgres"
	"github.com/Opkumar/Book-Review-System/internal/service"
	"github.com/Opkumar/Book-Review-System/migrations"
	"github.com/Opkumar/Book-Review-System/pkg/database"
	"github.com/Opkumar/Book-Review-System/pkg/health"
	pkgkafka "github.com/Opkumar/Book-Review-System/pkg/kafka"
	"github.com/Opkumar/Book-Review-System/pkg/middleware"
	"github.com/Opkumar/Book-Review-System/pkg/tracing"
)

// ServiceName tags logs, metrics and traces.
const ServiceName = "book-review"

// repositories is the persistence backend selected by STORE_DRIVER.
type repositories struct {
	books       repository.BookRepository
	ratings     repository.RatingStore
	reviews     repository.ReviewRepository
	users       repository.UserRepository
	readingList repository.ReadingListRepository
	ping        health.Checker
}

// App wires together all dependencies and runs the book review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	consumerWG     sync.WaitGroup
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	repos, pool, err := openStore(ctx, cfg, logger)
	if err != nil {
		a.closeResources()
		return nil, err
	}
	a.pool = pool

	// Book detail cache.
	var bookCache service.BookCache = service.NoopBookCache{}
	var redisCache *cache.BookCache
	if cfg.RedisEnabled {
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		redisCache = cache.NewBookCache(client, cfg.BookCacheTTL, logger)
		bookCache = redisCache
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
	}

	// Kafka producer. A nil producer turns event publishing into a no-op.
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.ProducerConfig{Brokers: cfg.KafkaBrokers}, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(a.producer, logger)

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	aggregator := service.NewAggregator(repos.ratings, bookCache, eventProducer, logger)
	svcs := handler.Services{
		Books:       service.NewBookService(repos.books, repos.reviews, aggregator, bookCache, eventProducer, logger),
		Reviews:     service.NewReviewService(repos.reviews, repos.books, repos.users, aggregator, eventProducer, logger),
		ReadingList: service.NewReadingListService(repos.readingList, repos.books, logger),
		Users:       service.NewUserService(repos.users, repos.reviews, repos.readingList, hasher, jwtManager, logger),
	}

	// Recompute requests published after a failed aggregation are retried
	// by this consumer.
	if cfg.KafkaEnabled {
		a.consumer = a.newRecomputeConsumer(aggregator)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical(cfg.StoreDriver, repos.ping)
	if redisCache != nil {
		healthHandler.RegisterNonCritical("redis", redisCache.Ping)
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	// HTTP router.
	router := handler.NewRouter(svcs, jwtManager.Validator(), healthHandler, handler.RouterConfig{
		ServiceName: ServiceName,
		CORS:        middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
		PprofCIDRs:  cfg.PprofAllowedCIDRs,
		RateLimit:   middleware.RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openStore connects the configured persistence backend. The postgres
// driver also applies pending migrations; the returned pool is nil for the
// memory driver.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, *pgxpool.Pool, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		books := store.Books()
		return &repositories{
			books:       books,
			ratings:     books,
			reviews:     store.Reviews(),
			users:       store.Users(),
			readingList: store.ReadingList(),
			ping:        store.Ping,
		}, nil, nil
	}

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, pgCfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	books := postgres.NewBookRepository(pool)
	return &repositories{
		books:       books,
		ratings:     books,
		reviews:     postgres.NewReviewRepository(pool),
		users:       postgres.NewUserRepository(pool),
		readingList: postgres.NewReadingListRepository(pool),
		ping:        pool.Ping,
	}, pool, nil
}

// newRecomputeConsumer builds the consumer of recompute_requested events.
// Redelivered events are deduplicated in Redis when it is available and in
// process memory otherwise.
func (a *App) newRecomputeConsumer(aggregator *service.Aggregator) *pkgkafka.Consumer {
	var dedup pkgkafka.IdempotencyStore
	if a.redis != nil {
		dedup = pkgkafka.NewRedisIdempotencyStore(a.redis, ServiceName+":recompute", a.cfg.EventDedupTTL)
	} else {
		dedup = pkgkafka.NewMemoryIdempotencyStore(a.cfg.EventDedupTTL)
	}

	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)
	h := pkgkafka.IdempotentHandler(dedup, event.RecomputeHandler(aggregator, a.logger), a.logger)

	return pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers: a.cfg.KafkaBrokers,
		GroupID: a.cfg.KafkaConsumerGroup,
		Topic:   event.TopicRecomputeRequested,
	}, h, a.logger, pkgkafka.WithDLQ(a.dlq))
}

// Run starts the HTTP server and the event consumer and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if a.consumer != nil {
		a.consumerWG.Add(1)
		go func() {
			defer a.consumerWG.Done()
			if err := a.consumer.Start(consumerCtx); err != nil {
				a.logger.Error("recompute consumer stopped", slog.String("error", err.Error()))
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		stopConsumer()
		return errors.Join(err, a.Shutdown())
	}

	stopConsumer()
	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Event consumer
// 3. Tracer (flush pending spans from drained requests)
// 4. Kafka producers, Redis and the PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Wait for the consumer loop to finish its current message.
	if a.consumer != nil {
		a.consumerWG.Wait()
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeResources()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything NewApp may have opened. It also cleans
// up after a partially failed NewApp.
func (a *App) closeResources() []error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}
