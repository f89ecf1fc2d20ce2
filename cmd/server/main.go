package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"million-words-server/internal/auth"
	"million-words-server/internal/config"
	"million-words-server/internal/handler"
	"million-words-server/internal/ledger"
	"million-words-server/internal/logger"
	"million-words-server/internal/messaging"
	"million-words-server/internal/middleware"
	"million-words-server/internal/models"
	"million-words-server/internal/overlay"
	"million-words-server/internal/repository"
	"million-words-server/internal/scheduler"
	"million-words-server/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized", zap.String("logLevel", cfg.LogLevel), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		zap.L().Fatal("Failed to open story store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer store.close()
	zap.L().Info("Story store ready", zap.String("driver", cfg.StoreDriver))

	// --- Word-count ledger ---
	var wordLedger ledger.Ledger = ledger.NewMemoryLedger()
	var rateLimitRedis redis.UniversalClient
	if cfg.RedisAddr != "" {
		redisClient, err := setupRedis(cfg)
		if err != nil {
			zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		wordLedger = ledger.NewRedisLedger(redisClient, "", log)
		rateLimitRedis = redisClient
	} else {
		zap.L().Warn("REDIS_ADDR not set, leaderboard totals are kept in memory")
	}

	// --- Story events ---
	var publisher messaging.StoryEventPublisher = messaging.NopPublisher{}
	var mqConn *amqp091.Connection
	if cfg.RabbitMQURL != "" {
		conn, err := connectRabbitMQ(cfg.RabbitMQURL, log)
		if err != nil {
			zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer conn.Close()
		mqConn = conn

		rabbitPublisher, err := messaging.NewRabbitMQStoryEventPublisher(conn, cfg.StoryEventsExchange, log)
		if err != nil {
			zap.L().Fatal("Failed to create story event publisher", zap.Error(err))
		}
		defer rabbitPublisher.Close()
		publisher = rabbitPublisher
	}

	// --- Services ---
	submissionSvc := service.NewSubmissionService(store.stories, store.banned, publisher, cfg.MinWordCount, cfg.MaxWordCount, log)
	moderationSvc := service.NewModerationService(store.stories, store.banned, publisher, log)

	// --- Overlay and scheduler ---
	hub := overlay.NewHub(log)
	defer hub.Close()

	sched, err := scheduler.New(
		moderationSvc,
		wordLedger,
		overlay.Renderers(hub, log),
		scheduler.Config{
			Strategies:      scheduler.ParseStrategies(cfg.GetStrategies()),
			MinVisible:      cfg.DisplayMinVisible,
			MaxVisible:      cfg.DisplayMaxVisible,
			RefreshInterval: cfg.RefreshInterval,
		},
		log,
	)
	if err != nil {
		zap.L().Fatal("Failed to create display scheduler", zap.Error(err))
	}
	if err := sched.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start display scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Push notifications from the store or the broker skip the periodic wait.
	if sub, ok := store.stories.(repository.Subscriber); ok {
		cancelSub, err := sub.Subscribe(ctx, sched.TriggerRefresh)
		if err != nil {
			zap.L().Error("Failed to subscribe to story changes, relying on periodic refresh", zap.Error(err))
		} else {
			defer cancelSub()
		}
	}

	var consumer *messaging.StoryEventConsumer
	if mqConn != nil {
		consumer, err = messaging.NewStoryEventConsumer(mqConn, cfg.StoryEventsExchange,
			messaging.StoryEventHandlerFunc(func(_ context.Context, event models.StoryEvent) {
				// pending submissions never change the eligible set
				if event.Type != models.StoryEventSubmitted {
					sched.TriggerRefresh()
				}
			}), log)
		if err != nil {
			zap.L().Fatal("Failed to create story event consumer", zap.Error(err))
		}
		if err := consumer.StartConsuming(ctx); err != nil {
			zap.L().Fatal("Failed to start story event consumer", zap.Error(err))
		}
	}

	adminSvc := auth.NewAdminService(cfg.AdminPasswordHash, cfg.JWTSecret, cfg.AdminTokenTTL, log)
	storyHandler := handler.NewStoryHandler(
		submissionSvc,
		moderationSvc,
		wordLedger,
		sched,
		overlay.NewHandler(hub, cfg.GetAllowedOrigins(), log),
		adminSvc,
		log,
	)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.ZapLoggingMiddlewareForGin(log))
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))

	p := ginprometheus.NewPrometheus("gin")

	storyHandler.RegisterRoutes(router, handler.NewSubmitRateLimiter(rateLimitRedis, cfg.SubmitRateLimit, log))

	// Prometheus middleware после регистрации роутов
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zap.L().Info("Shutting down server...")

	sched.Stop()
	if consumer != nil {
		consumer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	origins := cfg.GetAllowedOrigins()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsCfg.MaxAge = 12 * time.Hour
	return corsCfg
}
