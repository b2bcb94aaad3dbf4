package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	ReadModelURL  string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	StorageDriver string
	MigrationsURL string

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	RedisAddr          string
	IdempotencyTTL     time.Duration
	RateLimit          string
	CORSAllowedOrigins []string
	OTLPEndpoint       string

	FinePolicyDefaults domain.FinePolicy
	TxRetryAttempts    int
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	defaults := domain.DefaultFinePolicy()

	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("READMODEL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	v.SetDefault("MIGRATIONS_URL", "file://migrations")
	v.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	v.SetDefault("JWT_EXPIRY_DURATION", "1h")
	v.SetDefault("JWT_ISSUER", "book-lending-app")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("FINE_LATE_FEE_PER_DAY", defaults.LateFeePerDay.String())
	v.SetDefault("FINE_MISSING_MULTIPLIER", defaults.MissingOrLostMultiplier.String())
	v.SetDefault("FINE_SMALL_DAMAGE_FRACTION", defaults.SmallDamageFraction.String())
	v.SetDefault("FINE_LARGE_DAMAGE_FRACTION", defaults.LargeDamageFraction.String())
	v.SetDefault("TX_RETRY_ATTEMPTS", 4)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:   v.GetString("PGSQL_URL"),
		ReadModelURL:  v.GetString("READMODEL_URL"),
		Port:          v.GetString("PORT"),
		IsProduction:  v.GetBool("IS_PRODUCTION"),
		EnableDBCheck: v.GetBool("ENABLE_DB_CHECK"),
		StorageDriver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		MigrationsURL: v.GetString("MIGRATIONS_URL"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		JWTIssuer:     v.GetString("JWT_ISSUER"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RateLimit:     v.GetString("RATE_LIMIT"),
		OTLPEndpoint:  v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		slog.Warn("PORT not set, using default", slog.String("port", cfg.Port))
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL is required when STORAGE_DRIVER=%s", StorageDriverPostgres)
		}
		if cfg.ReadModelURL == "" {
			cfg.ReadModelURL = cfg.DatabaseURL
		}
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		if cfg.IsProduction {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		slog.Warn("JWT_SECRET not set, using default insecure key")
	}

	cfg.JWTExpiryDuration = durationOr(v, "JWT_EXPIRY_DURATION", time.Hour)
	cfg.IdempotencyTTL = durationOr(v, "IDEMPOTENCY_TTL", 24*time.Hour)

	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	policy, err := finePolicyFrom(v)
	if err != nil {
		return nil, err
	}
	cfg.FinePolicyDefaults = policy

	cfg.TxRetryAttempts = v.GetInt("TX_RETRY_ATTEMPTS")
	if cfg.TxRetryAttempts < 1 {
		return nil, fmt.Errorf("TX_RETRY_ATTEMPTS must be at least 1, got %d", cfg.TxRetryAttempts)
	}

	return cfg, nil
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("Invalid duration, using default", slog.String("key", key), slog.String("value", raw), slog.String("default", fallback.String()))
		return fallback
	}
	return d
}

type decimalSetting struct {
	key string
	dst *decimal.Decimal
}

func finePolicyFrom(v *viper.Viper) (domain.FinePolicy, error) {
	var p domain.FinePolicy
	settings := []decimalSetting{
		{"FINE_LATE_FEE_PER_DAY", &p.LateFeePerDay},
		{"FINE_MISSING_MULTIPLIER", &p.MissingOrLostMultiplier},
		{"FINE_SMALL_DAMAGE_FRACTION", &p.SmallDamageFraction},
		{"FINE_LARGE_DAMAGE_FRACTION", &p.LargeDamageFraction},
	}
	for _, s := range settings {
		d, err := decimal.NewFromString(v.GetString(s.key))
		if err != nil {
			return domain.FinePolicy{}, fmt.Errorf("%s: %w", s.key, err)
		}
		*s.dst = d
	}
	if err := p.Validate(); err != nil {
		return domain.FinePolicy{}, fmt.Errorf("fine policy defaults: %w", err)
	}
	return p, nil
}
