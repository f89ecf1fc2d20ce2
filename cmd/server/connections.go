package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"million-words-server/internal/config"
	"million-words-server/internal/repository"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	maxConnectRetries = 20
	connectRetryDelay = 3 * time.Second
)

// storyStore bundles the repositories of the selected driver.
type storyStore struct {
	stories repository.StoryRepository
	banned  repository.BannedUserRepository
	close   func()
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storyStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := setupPostgres(cfg)
		if err != nil {
			return nil, err
		}
		if err := repository.RunMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
		return &storyStore{
			stories: repository.NewPgStoryRepository(pool, logger),
			banned:  repository.NewPgBannedUserRepository(pool, logger),
			close:   pool.Close,
		}, nil

	case config.StoreDriverFirestore:
		client, err := setupFirestore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &storyStore{
			stories: repository.NewFirestoreStoryRepository(client, logger),
			banned:  repository.NewFirestoreBannedUserRepository(client, logger),
			close: func() {
				if err := client.Close(); err != nil {
					zap.L().Warn("Error closing Firestore client", zap.Error(err))
				}
			},
		}, nil

	default:
		stories, err := repository.NewFileStoryRepository(cfg.DataDir, logger)
		if err != nil {
			return nil, err
		}
		banned, err := repository.NewFileBannedUserRepository(cfg.DataDir, logger)
		if err != nil {
			return nil, err
		}
		return &storyStore{stories: stories, banned: banned, close: func() {}}, nil
	}
}

// setupPostgres initializes the PostgreSQL connection pool with retry logic.
func setupPostgres(cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = cfg.DBMaxConns

	var lastErr error
	zap.L().Info("Attempting to connect to PostgreSQL",
		zap.String("host", cfg.DBHost),
		zap.Int("max_retries", maxConnectRetries),
	)
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		connectCtx, connectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		if err == nil {
			err = pool.Ping(connectCtx)
			if err != nil {
				pool.Close()
			}
		}
		connectCancel()

		if err == nil {
			zap.L().Info("Successfully connected and pinged PostgreSQL", zap.Int("attempt", attempt))
			return pool, nil
		}
		lastErr = err
		zap.L().Warn("PostgreSQL connection failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(connectRetryDelay)
	}
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", maxConnectRetries, lastErr)
}

// setupRedis initializes the Redis client with retry logic.
func setupRedis(cfg *config.Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	var lastErr error
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		client := redis.NewClient(opts)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := client.Ping(pingCtx).Result()
		pingCancel()

		if err == nil {
			zap.L().Info("Successfully connected and pinged Redis", zap.String("address", opts.Addr), zap.Int("attempt", attempt))
			return client, nil
		}
		client.Close()
		lastErr = err
		zap.L().Warn("Redis ping failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(connectRetryDelay)
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxConnectRetries, lastErr)
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками.
func connectRabbitMQ(rawURL string, logger *zap.Logger) (*amqp091.Connection, error) {
	var lastErr error
	logger.Info("Attempting to connect to RabbitMQ", zap.String("url", maskURL(rawURL)))
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		conn, err := amqp091.Dial(rawURL)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ", zap.Int("attempt", attempt))
			go func() {
				notifyClose := conn.NotifyClose(make(chan *amqp091.Error, 1))
				if err, ok := <-notifyClose; ok && err != nil {
					logger.Error("RabbitMQ connection closed unexpectedly", zap.Error(err))
				}
			}()
			return conn, nil
		}
		lastErr = err
		logger.Warn("RabbitMQ connection failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(connectRetryDelay)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxConnectRetries, lastErr)
}

// setupFirestore creates a Firestore client through the Firebase Admin SDK.
// Without a credentials path the application default credentials are used.
func setupFirestore(ctx context.Context, cfg *config.Config) (*firestore.Client, error) {
	var opts []option.ClientOption
	if cfg.FirestoreCredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirestoreCredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirestoreProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	zap.L().Info("Firestore client created", zap.String("projectID", cfg.FirestoreProjectID))
	return client, nil
}

// maskURL hides credentials before a URL is logged.
func maskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
