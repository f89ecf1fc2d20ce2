package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers
const (
	StoreDriverFile      = "file"
	StoreDriverPostgres  = "postgres"
	StoreDriverFirestore = "firestore"
)

// Config holds the application configuration.
type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	ServerPort  string `envconfig:"SERVER_PORT" default:"3000"`
	SecretsDir  string `envconfig:"SECRETS_DIR" default:"/run/secrets"`

	// Storage
	StoreDriver string `envconfig:"STORE_DRIVER" default:"file"`
	DataDir     string `envconfig:"DATA_DIR" default:"./data"`

	// PostgreSQL (STORE_DRIVER=postgres)
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"stories"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string `ignored:"true"`

	// Firestore (STORE_DRIVER=firestore)
	FirestoreProjectID       string `envconfig:"FIRESTORE_PROJECT_ID"`
	FirestoreCredentialsPath string `envconfig:"FIRESTORE_CREDENTIALS_PATH"`

	// Redis backs the word-count ledger and the rate limiter. Empty means in-memory.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string `ignored:"true"`

	// RabbitMQ carries story events between instances. Empty disables it.
	RabbitMQURL         string `envconfig:"RABBITMQ_URL"`
	StoryEventsExchange string `envconfig:"STORY_EVENTS_EXCHANGE" default:"story_events"`

	// Overlay rotation
	RefreshInterval   time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
	MinWordCount      int           `envconfig:"MIN_WORD_COUNT" default:"50"`
	MaxWordCount      int           `envconfig:"MAX_WORD_COUNT" default:"100000"`
	DisplayMinVisible time.Duration `envconfig:"DISPLAY_MIN_VISIBLE" default:"30s"`
	DisplayMaxVisible time.Duration `envconfig:"DISPLAY_MAX_VISIBLE" default:"45s"`
	DisplayStrategies string        `envconfig:"DISPLAY_STRATEGIES" default:"ticker,side-overlay,takeover"`

	// HTTP
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	SubmitRateLimit    uint   `envconfig:"SUBMIT_RATE_LIMIT" default:"10"` // submissions per minute per IP

	// Admin auth. Without a password hash the admin routes are open.
	AdminTokenTTL     time.Duration `envconfig:"ADMIN_TOKEN_TTL" default:"12h"`
	AdminPasswordHash string        `ignored:"true"`
	JWTSecret         string        `ignored:"true"`
}

// GetAllowedOrigins splits CORSAllowedOrigins into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// GetStrategies returns the configured overlay display strategies.
func (c *Config) GetStrategies() []string {
	if c.DisplayStrategies == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.DisplayStrategies, " ", ""), ",")
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// AdminAuthEnabled reports whether admin routes require a token.
func (c *Config) AdminAuthEnabled() bool {
	return c.AdminPasswordHash != ""
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverFile, StoreDriverPostgres, StoreDriverFirestore:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreDriver == StoreDriverFirestore && c.FirestoreProjectID == "" {
		return errors.New("FIRESTORE_PROJECT_ID is required for the firestore driver")
	}
	if c.MinWordCount <= 0 {
		return errors.New("MIN_WORD_COUNT must be positive")
	}
	if c.MaxWordCount < c.MinWordCount {
		return errors.New("MAX_WORD_COUNT must not be below MIN_WORD_COUNT")
	}
	if c.RefreshInterval <= 0 {
		return errors.New("REFRESH_INTERVAL must be positive")
	}
	if c.DisplayMinVisible <= 0 || c.DisplayMaxVisible < c.DisplayMinVisible {
		return errors.New("DISPLAY_MIN_VISIBLE must be positive and not above DISPLAY_MAX_VISIBLE")
	}
	for _, s := range c.GetStrategies() {
		switch s {
		case "ticker", "side-overlay", "takeover":
		default:
			return fmt.Errorf("unknown display strategy %q", s)
		}
	}
	if c.AdminAuthEnabled() && c.JWTSecret == "" {
		return errors.New("secret jwt_secret is required when admin_password_hash is set")
	}
	return nil
}

// LoadConfig loads configuration from an optional .env file, the environment
// and secret files.
func LoadConfig(envFilePath string) (*Config, error) {
	if _, err := os.Stat(envFilePath); err == nil {
		if err := godotenv.Load(envFilePath); err != nil {
			log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
		} else {
			log.Printf("Loaded configuration from %s", envFilePath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	// Пароль БД обязателен только для postgres
	if cfg.StoreDriver == StoreDriverPostgres {
		pass, err := ReadSecret(cfg.SecretsDir, "db_password")
		if err != nil {
			return nil, err
		}
		cfg.DBPassword = pass
	}

	// Необязательные секреты
	if cfg.RedisAddr != "" {
		if pass, err := ReadSecret(cfg.SecretsDir, "redis_password"); err == nil {
			cfg.RedisPassword = pass
		}
	}
	if hash, err := ReadSecret(cfg.SecretsDir, "admin_password_hash"); err == nil {
		cfg.AdminPasswordHash = hash
	}
	if secret, err := ReadSecret(cfg.SecretsDir, "jwt_secret"); err == nil {
		cfg.JWTSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
