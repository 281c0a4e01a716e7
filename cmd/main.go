/**
 * @description
 * This is the main entry point for the admin-service. It serves the admin user
 * directory and the aggregated customer/helper views over HTTP, keeps the details
 * cache fresh from profile change events, and optionally pre-warms it on a schedule.
 *
 * Key features:
 * - Loads configuration from environment variables and an optional .env file.
 * - Establishes the PostgreSQL pool and, when configured, the Redis client.
 * - Publishes audit events to RabbitMQ, falling back to a logging publisher.
 * - Consumes profile/booking/payment/helper events to invalidate cached views.
 * - Implements graceful shutdown for the HTTP server, consumer and scheduler.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: Database connection pooling.
 * - github.com/redis/go-redis/v9: Details cache and rate limiting.
 * - github.com/joho/godotenv: Loads .env files for local development.
 * - go.uber.org/zap: Structured logging.
 */
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helparo/admin-service/internal/api"
	"github.com/helparo/admin-service/internal/app"
	"github.com/helparo/admin-service/internal/cache"
	"github.com/helparo/admin-service/internal/config"
	"github.com/helparo/admin-service/internal/domain"
	"github.com/helparo/admin-service/internal/logging"
	"github.com/helparo/admin-service/internal/store"
	"github.com/helparo/admin-service/pkg/rabbitmq"
)

func main() {
	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, "admin-service")
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("unable to parse database URL", zap.Error(err))
	}
	dbConfig.MaxConns = 20
	dbConfig.MinConns = 2
	dbConfig.MaxConnLifetime = 30 * time.Minute
	dbConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind poolers
	dbConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	dbpool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		logger.Fatal("unable to connect to database", zap.Error(err))
	}
	defer dbpool.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	err = dbpool.Ping(pingCtx)
	pingCancel()
	if err != nil {
		logger.Fatal("database ping failed", zap.Error(err))
	}
	logger.Info("database connection established")

	repo := store.NewPostgresRepository(dbpool, cfg.QueryTimeout)

	var (
		detailsCache app.DetailsCache
		limiter      app.RateLimiter
		redisClient  *redis.Client
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("unable to parse redis URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis ping failed; cache and rate limit calls will degrade", zap.Error(err))
		}
		pingCancel()

		if cfg.DetailsCacheTTL > 0 {
			detailsCache = cache.NewDetailsCache(redisClient, cfg.DetailsCacheTTL)
		}
		limiter = cache.NewAttemptGuard(redisClient, cfg.RateLimitPrefix)
	} else {
		logger.Warn("REDIS_URL not set; details cache and phone rate limiting disabled")
	}

	var publisher rabbitmq.Publisher = &rabbitmq.EventProducerFallback{Logger: logger}
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("failed to connect event producer; audit events will only be logged", zap.Error(err))
		} else {
			publisher = producer
		}
	}
	defer publisher.Close()

	aggregator := app.NewProfileAggregator(repo, detailsCache, publisher, logger, app.AggregatorConfig{
		FanOutLimit:   cfg.FanOutLimit,
		AuditExchange: cfg.AuditExchange,
	})
	directory := app.NewDirectory(repo)
	phoneChecker := app.NewPhoneChecker(repo, limiter, logger, app.PhoneCheckConfig{
		Limit:  cfg.PhoneCheckLimit,
		Window: cfg.PhoneCheckWindow,
		Block:  cfg.PhoneCheckBlock,
	})

	if detailsCache != nil && cfg.RabbitMQURL != "" {
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("failed to connect change consumer; cached views expire by TTL only", zap.Error(err))
		} else {
			defer consumer.Close()
			changes := app.NewProfileChangeHandler(aggregator, logger)
			go func() {
				err := consumer.Consume(ctx, cfg.EventsExchange, cfg.EventsQueue, domain.ProfileChangedBindings, changes.HandleProfileChanged)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("change consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	var scheduler *app.Scheduler
	if detailsCache != nil {
		warmer := app.NewCacheWarmer(repo, aggregator, logger, cfg.CacheWarmBatch)
		scheduler = app.NewScheduler(warmer, logger, cfg.CacheWarmSchedule)
		if !scheduler.Start() {
			scheduler = nil
		}
	}

	handler := api.NewHandler(aggregator, directory, phoneChecker, logger)
	router := api.NewRouter(handler, repo, api.RouterConfig{
		Auth: api.AuthConfig{
			JWTSecret:       cfg.JWTSecret,
			JWTIssuer:       cfg.JWTIssuer,
			AllowHeaderAuth: cfg.AllowHeaderAuth,
		},
		AllowedOrigins: cfg.AllowedOrigins(),
	}, logger)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("admin-service listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Wait for termination signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down admin-service")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
}
