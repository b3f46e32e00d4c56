package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // zone database for slim images

	"github.com/robfig/cron/v3"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Storage
	StoreBackend string
	SQLitePath   string
	SeedFile     string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint   string
	TracingEnabled bool

	// Notifications (empty URL logs notifications instead)
	AMQPURL      string
	AMQPExchange string

	// Auto-sync of transactions into income (empty disables it)
	AutoSyncSchedule string
	Timezone         string

	// Search defaults
	FuzzyThreshold  float64
	FuzzyMaxResults int
	FuzzyEnabled    bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend: getEnv("STORE_BACKEND", BackendMemory),
		SQLitePath:   getEnv("SQLITE_PATH", "data/azii.db"),
		SeedFile:     getEnv("SEED_FILE", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TracingEnabled: getEnvBool("TRACING_ENABLED", true),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "azii.events"),

		AutoSyncSchedule: getEnv("AUTO_SYNC_SCHEDULE", ""),
		Timezone:         getEnv("TIMEZONE", "Africa/Nairobi"),

		FuzzyThreshold:  getEnvFloat("FUZZY_THRESHOLD", 0.4),
		FuzzyMaxResults: getEnvInt("FUZZY_MAX_RESULTS", 200),
		FuzzyEnabled:    getEnvBool("FUZZY_ENABLED", true),
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be memory, sqlite or supabase, got %q", c.StoreBackend))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("MAX_RETRIES must not be negative, got %d", c.MaxRetries))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency))
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("FUZZY_THRESHOLD must be within [0,1], got %v", c.FuzzyThreshold))
	}
	if c.FuzzyMaxResults < 0 {
		errs = append(errs, fmt.Errorf("FUZZY_MAX_RESULTS must not be negative, got %d", c.FuzzyMaxResults))
	}
	if c.AutoSyncSchedule != "" {
		if _, err := cron.ParseStandard(c.AutoSyncSchedule); err != nil {
			errs = append(errs, fmt.Errorf("AUTO_SYNC_SCHEDULE: %w", err))
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}

	return errors.Join(errs...)
}

// Location returns the configured time zone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
