package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	syncapp "github.com/erp/channel-sync/internal/application/sync"
	"github.com/erp/channel-sync/internal/domain/shared"
	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/erp/channel-sync/internal/infrastructure/cache"
	"github.com/erp/channel-sync/internal/infrastructure/config"
	"github.com/erp/channel-sync/internal/infrastructure/fulfillment"
	"github.com/erp/channel-sync/internal/infrastructure/logger"
	"github.com/erp/channel-sync/internal/infrastructure/persistence"
	"github.com/erp/channel-sync/internal/infrastructure/shopify"
	"github.com/erp/channel-sync/internal/interfaces/http/handler"
	"github.com/erp/channel-sync/internal/interfaces/http/middleware"
	"github.com/erp/channel-sync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting channel sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	queueRepo := persistence.NewGormQueueItemRepository(db.DB)
	jobRepo := persistence.NewGormSyncJobRepository(db.DB)
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB)
	linkRepo := persistence.NewGormProductLinkRepository(db.DB)
	unmatchedRepo := persistence.NewGormUnmatchedProductRepository(db.DB)
	localProducts := persistence.NewGormLocalProductReader(db.DB)
	orderRepo := persistence.NewGormOrderRecordRepository(db.DB)

	// Webhook delivery dedupe store. Redis when reachable so redeliveries
	// landing on different replicas are still deduped; in-memory otherwise.
	var dedupe shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.App.Env == "production" {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Warn("Redis unavailable, using in-memory webhook dedupe", zap.Error(err))
		memStore := cache.NewInMemoryIdempotencyStore()
		defer func() { _ = memStore.Close() }()
		dedupe = memStore
	} else {
		defer func() { _ = redisStore.Close() }()
		dedupe = redisStore
		log.Info("Redis connected")
	}

	// Platform client factory
	clientFactory, err := shopify.NewClientFactory(&shopify.Config{
		APIVersion:          cfg.Shopify.APIVersion,
		Timeout:             cfg.Shopify.Timeout,
		MaxAttempts:         cfg.Shopify.MaxAttempts,
		ThrottleThreshold:   cfg.Shopify.ThrottleThreshold,
		ThrottleWait:        cfg.Shopify.ThrottleWait,
		RetryAfterMargin:    cfg.Shopify.RetryAfterMargin,
		TransportRetryDelay: cfg.Shopify.TransportRetryDelay,
	})
	if err != nil {
		log.Fatal("Failed to build platform client factory", zap.Error(err))
	}

	// Sync pipeline
	matcher := syncapp.NewMatcher(localProducts, linkRepo, unmatchedRepo)
	worker := syncapp.NewPageWorker(
		integrationRepo, queueRepo, jobRepo, clientFactory,
		cfg.Sync.PageSize,
		syncapp.NewProductPageApplier(matcher),
		syncapp.NewOrderPageApplier(orderRepo),
	)
	failures := syncapp.NewFailureHandler(queueRepo, jobRepo,
		sync.NewBackoffPolicy(cfg.Sync.BackoffBase, cfg.Sync.BackoffCap))

	service := syncapp.NewService(
		integrationRepo, queueRepo, jobRepo, orderRepo,
		worker, failures, dedupe, cfg.Webhook.DedupeTTL)

	// Outbound fulfillment passthrough, optional
	if cfg.Fulfillment.BaseURL != "" {
		fulfillmentClient, err := fulfillment.NewClient(
			cfg.Fulfillment.BaseURL,
			cfg.Fulfillment.APIKey,
			&http.Client{Timeout: cfg.Fulfillment.Timeout},
		)
		if err != nil {
			log.Fatal("Failed to build fulfillment client", zap.Error(err))
		}
		service = service.WithFulfillment(fulfillmentClient)
		log.Info("Fulfillment client configured", zap.String("base_url", cfg.Fulfillment.BaseURL))
	}

	// Background queue processor
	if cfg.Sync.ProcessorEnabled {
		processor := syncapp.NewQueueProcessor(queueRepo, worker, failures,
			syncapp.ProcessorConfig{
				BatchSize:     cfg.Sync.BatchSize,
				PollInterval:  cfg.Sync.PollInterval,
				StaleAfter:    cfg.Sync.StaleAfter,
				SweepInterval: time.Minute,
			}, log)
		if err := processor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start queue processor", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := processor.Stop(stopCtx); err != nil {
				log.Error("Error stopping queue processor", zap.Error(err))
			}
		}()
	}

	// HTTP server
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.Logger(log))
	engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSAllowOrigins,
		AllowMethods: cfg.HTTP.CORSAllowMethods,
		AllowHeaders: cfg.HTTP.CORSAllowHeaders,
	}))

	handler.NewHealthHandler(cfg.App.Name, cfg.App.Env, db).RegisterRoutes(engine)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(handler.NewSyncHandler(service)).
		Register(handler.NewOrderHandler(service)).
		Register(handler.NewWebhookHandler(service, cfg.Webhook.MaxBodySize)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
