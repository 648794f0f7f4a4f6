package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	Vault      VaultConfig
	Gateway    GatewayConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Billing    BillingConfig
	SelfHosted bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds the shared secret used to verify access tokens.
type JWTConfig struct {
	Secret string //nolint:gosec // G117: JWT signing secret config
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// VaultConfig derives the key that encrypts gateway credentials at rest.
type VaultConfig struct {
	Passphrase string //nolint:gosec // G117: key material
	Salt       string
}

// GatewayConfig tunes outbound Asaas calls.
type GatewayConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	// BaseURL overrides the per-account sandbox/production URL. Empty in production.
	BaseURL string
}

// RateLimitConfig applies to inbound requests.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// Webhook limits are per client IP.
	WebhookRequestsPerSecond float64
	WebhookBurst             int
}

type LogConfig struct {
	Level  zerolog.Level
	Format string // json or console
}

// BillingConfig holds ledger settings.
type BillingConfig struct {
	// Location decides which calendar day "today" is.
	Location *time.Location
	// SeedsFile optionally replaces the built-in board seeds.
	SeedsFile string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, vault passphrase, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("MENTORPRO_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("MENTORPRO_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("MENTORPRO_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("MENTORPRO_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("MENTORPRO_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	shutdownTimeout, err := getEnvDuration("MENTORPRO_SERVER_SHUTDOWN_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	gatewayTimeout, err := getEnvDuration("MENTORPRO_GATEWAY_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	gatewayRPS, err := getEnvFloat("MENTORPRO_GATEWAY_RPS", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	gatewayBurst, err := getEnvInt("MENTORPRO_GATEWAY_BURST", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateRPS, err := getEnvFloat("MENTORPRO_RATE_LIMIT_RPS", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("MENTORPRO_RATE_LIMIT_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	webhookRPS, err := getEnvFloat("MENTORPRO_WEBHOOK_RPS", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	webhookBurst, err := getEnvInt("MENTORPRO_WEBHOOK_BURST", 50)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	logLevel, err := zerolog.ParseLevel(getEnv("MENTORPRO_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("config.Load: parsing MENTORPRO_LOG_LEVEL: %w", err)
	}

	tz := getEnv("MENTORPRO_BILLING_TIMEZONE", "America/Sao_Paulo")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config.Load: parsing MENTORPRO_BILLING_TIMEZONE=%q: %w", tz, err)
	}

	selfHosted, err := getEnvBool("MENTORPRO_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("MENTORPRO_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("MENTORPRO_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("MENTORPRO_DB_USER", "mentorpro"),
			Password: getEnv("MENTORPRO_DB_PASSWORD", ""),
			DBName:   getEnv("MENTORPRO_DB_NAME", "mentorpro_dev"),
			SSLMode:  getEnv("MENTORPRO_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("MENTORPRO_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("MENTORPRO_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret: getEnv("MENTORPRO_JWT_SECRET", ""),
		},
		Server: ServerConfig{
			Addr:            getEnv("MENTORPRO_SERVER_ADDR", ":8080"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			CORSOrigins:     corsOrigins,
		},
		Vault: VaultConfig{
			Passphrase: getEnv("MENTORPRO_VAULT_PASSPHRASE", ""),
			Salt:       getEnv("MENTORPRO_VAULT_SALT", "mentorpro"),
		},
		Gateway: GatewayConfig{
			Timeout:           gatewayTimeout,
			RequestsPerSecond: gatewayRPS,
			Burst:             gatewayBurst,
			BaseURL:           getEnv("MENTORPRO_GATEWAY_BASE_URL", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:        rateRPS,
			Burst:                    rateBurst,
			WebhookRequestsPerSecond: webhookRPS,
			WebhookBurst:             webhookBurst,
		},
		Log: LogConfig{
			Level:  logLevel,
			Format: getEnv("MENTORPRO_LOG_FORMAT", "json"),
		},
		Billing: BillingConfig{
			Location:  loc,
			SeedsFile: getEnv("MENTORPRO_BOARD_SEEDS_FILE", ""),
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("MENTORPRO_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("MENTORPRO_JWT_SECRET must be at least 32 characters")
	}
	if c.Vault.Passphrase == "" {
		return errors.New("MENTORPRO_VAULT_PASSPHRASE is required")
	}
	if len(c.Vault.Passphrase) < 32 {
		return errors.New("MENTORPRO_VAULT_PASSPHRASE must be at least 32 characters")
	}

	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("MENTORPRO_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("MENTORPRO_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("MENTORPRO_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("MENTORPRO_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("MENTORPRO_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("MENTORPRO_GATEWAY_TIMEOUT must be positive, got %s", c.Gateway.Timeout)
	}
	if c.Gateway.RequestsPerSecond <= 0 || c.Gateway.Burst < 1 {
		return fmt.Errorf("MENTORPRO_GATEWAY_RPS and MENTORPRO_GATEWAY_BURST must be positive, got %g/%d",
			c.Gateway.RequestsPerSecond, c.Gateway.Burst)
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("MENTORPRO_RATE_LIMIT_RPS and MENTORPRO_RATE_LIMIT_BURST must be positive, got %g/%d",
			c.RateLimit.RequestsPerSecond, c.RateLimit.Burst)
	}
	if c.RateLimit.WebhookRequestsPerSecond <= 0 || c.RateLimit.WebhookBurst < 1 {
		return fmt.Errorf("MENTORPRO_WEBHOOK_RPS and MENTORPRO_WEBHOOK_BURST must be positive, got %g/%d",
			c.RateLimit.WebhookRequestsPerSecond, c.RateLimit.WebhookBurst)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("MENTORPRO_LOG_FORMAT must be json or console, got %q", c.Log.Format)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
