package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/access-token-service/internal/auth/token"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
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
	Level       string
	Format      string
	Service     string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret        string
	JWTAlgorithm     string
	JWTIssuer        string
	IdentifierClaim  string
	AccessTokenTTL   time.Duration
	ClockLeeway      time.Duration
	BcryptCost       int
	DefaultAbilities []string
}

// RateLimitConfig bounds login attempts per email and per client IP.
type RateLimitConfig struct {
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	num := func(key string, fallback int) int {
		v, err := getEnvAsInt(key, fallback)
		errs = append(errs, err)
		return v
	}
	dur := func(key string, fallback time.Duration) time.Duration {
		v, err := getEnvAsDuration(key, fallback)
		errs = append(errs, err)
		return v
	}
	flag := func(key string, fallback bool) bool {
		v, err := getEnvAsBool(key, fallback)
		errs = append(errs, err)
		return v
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "access-token-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: num("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(num("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(num("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  flag("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(num("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(num("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       num("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Format:      getEnv("LOG_FORMAT", "json"),
			Service:     getEnv("APP_NAME", "access-token-service"),
			Development: getEnv("APP_ENV", "development") == "development",
		},
		Auth: AuthConfig{
			JWTSecret:        os.Getenv("AUTH_JWT_SECRET"),
			JWTAlgorithm:     getEnv("AUTH_JWT_ALGORITHM", string(token.DefaultAlgorithm)),
			JWTIssuer:        os.Getenv("AUTH_JWT_ISSUER"),
			IdentifierClaim:  getEnv("AUTH_JWT_IDENTIFIER_CLAIM", "id"),
			AccessTokenTTL:   dur("AUTH_ACCESS_TOKEN_TTL", 100*time.Second),
			ClockLeeway:      dur("AUTH_JWT_LEEWAY", 0),
			BcryptCost:       num("AUTH_BCRYPT_COST", 12),
			DefaultAbilities: getEnvAsList("AUTH_DEFAULT_ABILITIES", []string{token.AbilityAll}),
		},
		RateLimit: RateLimitConfig{
			LoginMaxAttempts: num("RATE_LIMIT_LOGIN_MAX_ATTEMPTS", 10),
			LoginWindow:      dur("RATE_LIMIT_LOGIN_WINDOW", 15*time.Minute),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on settings that would otherwise break the first request.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.TokenOptions(); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be within 4..31, got %d", c.Auth.BcryptCost))
	}
	if c.RateLimit.LoginMaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_LOGIN_MAX_ATTEMPTS must not be negative"))
	}
	if c.RateLimit.LoginMaxAttempts > 0 && c.RateLimit.LoginWindow <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_LOGIN_WINDOW must be positive"))
	}
	if c.Postgres.MinConns > c.Postgres.MaxConns {
		errs = append(errs, fmt.Errorf("POSTGRES_MIN_CONNS exceeds POSTGRES_MAX_CONNS"))
	}
	return errors.Join(errs...)
}

// TokenOptions converts auth settings into validated token provider options.
func (c *Config) TokenOptions() (token.Options, error) {
	opts := token.Options{
		SigningKey:      []byte(c.Auth.JWTSecret),
		Algorithm:       token.Algorithm(strings.ToUpper(c.Auth.JWTAlgorithm)),
		TTL:             c.Auth.AccessTokenTTL,
		IdentifierClaim: c.Auth.IdentifierClaim,
		Issuer:          c.Auth.JWTIssuer,
		Leeway:          c.Auth.ClockLeeway,
	}
	if err := opts.Validate(); err != nil {
		return token.Options{}, err
	}
	return opts, nil
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

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	items := make([]string, 0)
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
