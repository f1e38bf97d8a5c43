package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const minSecretLength = 32

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Crypto    CryptoConfig
	Webhook   WebhookConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters. Access and refresh tokens are
// signed with distinct secrets so compromise of one cannot forge the other.
type AuthConfig struct {
	AccessSecret            string
	RefreshSecret           string
	AccessTTLMinutes        int
	RefreshTTLHours         int
	Issuer                  string
	Audience                string
	BcryptCost              int
	HashTimeoutSeconds      int
	HashWorkers             int
	PasswordResetTTLMinutes int
}

// CryptoConfig parameterizes field-level encryption at rest.
type CryptoConfig struct {
	Key              string
	Salt             string
	PBKDF2Iterations int
}

// WebhookConfig holds shared secrets for inbound webhook verification.
type WebhookConfig struct {
	ChatSecret      string
	TicketingSecret string
	MaxSkewSeconds  int
}

// RateLimitConfig bounds login attempts per email+IP window.
type RateLimitConfig struct {
	LoginAttempts      int
	LoginWindowSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-ticket-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			AccessSecret:            os.Getenv("JWT_ACCESS_SECRET"),
			RefreshSecret:           os.Getenv("JWT_REFRESH_SECRET"),
			AccessTTLMinutes:        getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 15),
			RefreshTTLHours:         getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 168),
			Issuer:                  getEnv("AUTH_TOKEN_ISSUER", "ticket-service"),
			Audience:                getEnv("AUTH_TOKEN_AUDIENCE", "ticket-service-api"),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
			HashTimeoutSeconds:      getEnvAsInt("AUTH_HASH_TIMEOUT_SECONDS", 5),
			HashWorkers:             getEnvAsInt("AUTH_HASH_WORKERS", 4),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
		},
		Crypto: CryptoConfig{
			Key:              os.Getenv("ENCRYPTION_KEY"),
			Salt:             os.Getenv("ENCRYPTION_SALT"),
			PBKDF2Iterations: getEnvAsInt("ENCRYPTION_PBKDF2_ITERATIONS", 100000),
		},
		Webhook: WebhookConfig{
			ChatSecret:      os.Getenv("WEBHOOK_CHAT_SECRET"),
			TicketingSecret: os.Getenv("WEBHOOK_TICKETING_SECRET"),
			MaxSkewSeconds:  getEnvAsInt("WEBHOOK_MAX_SKEW_SECONDS", 300),
		},
		RateLimit: RateLimitConfig{
			LoginAttempts:      getEnvAsInt("RATE_LIMIT_LOGIN_ATTEMPTS", 10),
			LoginWindowSeconds: getEnvAsInt("RATE_LIMIT_LOGIN_WINDOW_SECONDS", 60),
		},
	}

	return cfg, nil
}

// Validate enforces startup secret requirements. Running with missing or weak
// secrets is worse than not running at all, so callers must treat any error
// here as fatal.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Auth.AccessSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_SECRET must be at least %d bytes", minSecretLength))
	}
	if len(c.Auth.RefreshSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_REFRESH_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.Auth.AccessSecret != "" && c.Auth.AccessSecret == c.Auth.RefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.Auth.AccessTTL() >= c.Auth.RefreshTTL() {
		errs = append(errs, errors.New("access token TTL must be shorter than refresh token TTL"))
	}
	if len(c.Crypto.Key) < minSecretLength {
		errs = append(errs, fmt.Errorf("ENCRYPTION_KEY must be at least %d bytes", minSecretLength))
	}
	if c.Crypto.Salt == "" {
		errs = append(errs, errors.New("ENCRYPTION_SALT is required"))
	}
	if c.Webhook.ChatSecret != "" && len(c.Webhook.ChatSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("WEBHOOK_CHAT_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.Webhook.TicketingSecret != "" && len(c.Webhook.TicketingSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("WEBHOOK_TICKETING_SECRET must be at least %d bytes", minSecretLength))
	}

	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTTL returns the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	if a.AccessTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(a.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	if a.RefreshTTLHours <= 0 {
		return 168 * time.Hour
	}
	return time.Duration(a.RefreshTTLHours) * time.Hour
}

// HashTimeout bounds each bcrypt or key-derivation job.
func (a AuthConfig) HashTimeout() time.Duration {
	if a.HashTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(a.HashTimeoutSeconds) * time.Second
}

// PasswordResetTTL returns the reset token lifetime.
func (a AuthConfig) PasswordResetTTL() time.Duration {
	if a.PasswordResetTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(a.PasswordResetTTLMinutes) * time.Minute
}

// MaxSkew returns the webhook replay window.
func (w WebhookConfig) MaxSkew() time.Duration {
	if w.MaxSkewSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(w.MaxSkewSeconds) * time.Second
}

// LoginWindow returns the rate limit window.
func (r RateLimitConfig) LoginWindow() time.Duration {
	if r.LoginWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.LoginWindowSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
