package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// Config holds all configuration for the service
type Config struct {
	Database DatabaseConfig
	Telegram TelegramConfig
	Auth     AuthConfig
	HTTP     HTTPConfig
	Link     LinkConfig
	Kafka    KafkaConfig
	Logging  LoggingConfig
	Service  ServiceConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// TelegramConfig holds the MTProto API identity pair
type TelegramConfig struct {
	APIID   int
	APIHash string
}

// Configured reports whether account linking can run
func (c *TelegramConfig) Configured() bool {
	return c.APIID != 0 && c.APIHash != ""
}

// AuthConfig holds bearer token configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// UsesDefaultSecret reports whether JWT_SECRET was left unset
func (c *AuthConfig) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

// HTTPConfig holds cross-origin settings
type HTTPConfig struct {
	AllowedOrigins []string
}

// LinkConfig holds account linking limits and timeouts
type LinkConfig struct {
	PendingTTL        time.Duration
	SweepInterval     time.Duration
	MaxPending        int
	CallTimeout       time.Duration
	ConversationLimit int
}

// KafkaConfig holds Kafka configuration; empty Brokers disables link events
type KafkaConfig struct {
	Brokers        []string
	TopicLinkEvent string
}

// Enabled reports whether a Kafka producer should be created
func (c *KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Name    string
	Port    string
	Version string
}

// Result is fx.Out struct for providing config dependencies
type Result struct {
	fx.Out

	Config         *Config
	DatabaseConfig *DatabaseConfig
	TelegramConfig *TelegramConfig
	AuthConfig     *AuthConfig
	HTTPConfig     *HTTPConfig
	LinkConfig     *LinkConfig
	KafkaConfig    *KafkaConfig
	LoggingConfig  *LoggingConfig
	ServiceConfig  *ServiceConfig
}

// Out returns fx-compatible config result
func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:         cfg,
		DatabaseConfig: &cfg.Database,
		TelegramConfig: &cfg.Telegram,
		AuthConfig:     &cfg.Auth,
		HTTPConfig:     &cfg.HTTP,
		LinkConfig:     &cfg.Link,
		KafkaConfig:    &cfg.Kafka,
		LoggingConfig:  &cfg.Logging,
		ServiceConfig:  &cfg.Service,
	}, nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	apiID, err := strconv.Atoi(getEnv("TELEGRAM_API_ID", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_API_ID: %w", err)
	}

	origins := splitList(getEnv("ALLOWED_ORIGINS", ""))
	if len(origins) == 0 {
		origins = append([]string{}, defaultAllowedOrigins...)
	}
	if frontend := getEnv("FRONTEND_URL", ""); frontend != "" {
		origins = append(origins, frontend)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:           getEnv("DATABASE_HOST", "localhost"),
			Port:           getEnv("DATABASE_PORT", "5432"),
			User:           getEnv("DATABASE_USER", "tgviewer"),
			Password:       getEnv("DATABASE_PASSWORD", "tgviewer"),
			DBName:         getEnv("DATABASE_NAME", "tgviewer"),
			SSLMode:        getEnv("DATABASE_SSLMODE", "disable"),
			MigrationsPath: getEnv("DATABASE_MIGRATIONS_PATH", "file://migrations"),
		},
		Telegram: TelegramConfig{
			APIID:   apiID,
			APIHash: getEnv("TELEGRAM_API_HASH", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),
			TokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 7*24*time.Hour),
		},
		HTTP: HTTPConfig{
			AllowedOrigins: origins,
		},
		Link: LinkConfig{
			PendingTTL:        getEnvDuration("LINK_PENDING_TTL", 5*time.Minute),
			SweepInterval:     getEnvDuration("LINK_SWEEP_INTERVAL", time.Minute),
			MaxPending:        getEnvInt("LINK_MAX_PENDING", 1000),
			CallTimeout:       getEnvDuration("LINK_CALL_TIMEOUT", 30*time.Second),
			ConversationLimit: getEnvInt("LINK_CONVERSATION_LIMIT", 100),
		},
		Kafka: KafkaConfig{
			Brokers:        splitList(getEnv("KAFKA_BROKERS", "")),
			TopicLinkEvent: getEnv("KAFKA_TOPIC_LINK_EVENTS", "telegram.account.events"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "tgviewer"),
			Port:    getEnv("SERVICE_PORT", "8000"),
			Version: getEnv("SERVICE_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration.
// Missing Telegram credentials are not an error: only linking is disabled.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DATABASE_HOST is required")
	}

	if c.Database.User == "" {
		return fmt.Errorf("DATABASE_USER is required")
	}

	if c.Database.DBName == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}

	if c.Link.PendingTTL <= 0 || c.Link.SweepInterval <= 0 || c.Link.CallTimeout <= 0 {
		return fmt.Errorf("LINK_PENDING_TTL, LINK_SWEEP_INTERVAL and LINK_CALL_TIMEOUT must be positive")
	}

	if c.Link.ConversationLimit <= 0 {
		return fmt.Errorf("LINK_CONVERSATION_LIMIT must be positive")
	}

	if c.Kafka.Enabled() && c.Kafka.TopicLinkEvent == "" {
		return fmt.Errorf("KAFKA_TOPIC_LINK_EVENTS is required when KAFKA_BROKERS is set")
	}

	return nil
}

// GetDSN returns database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvDuration gets environment variable as duration with default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
