package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/boofmebel/auth/pkg/httpx"
	"github.com/boofmebel/auth/pkg/jwtx"
)

// devSecretKey signs tokens when ENV=dev and no secret is configured.
const devSecretKey = "dev-secret-key-change-in-production"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BackendMemory = "memory"
	BackendStore  = "store"
)

type Config struct {
	Issuer     string        // Optional: iss claim (default: boofmebel-auth)
	SecretKey  string        // Required outside dev: token signing secret, at least 32 bytes
	Algorithm  string        // Optional: HS256 or EdDSA (default: HS256)
	AccessTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL time.Duration // Optional: refresh token and cookie lifetime (default: 30 days)

	DatabaseDriver string // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile   string // Optional: SQLite database file (default: ./auth.db)
	DatabaseURL    string // Required for postgres
	PepperFile     string // Optional: password pepper file, created if missing (default: ./pepper)

	CORSOrigins      []string        // Optional: comma separated allowed origins
	RateLimitBackend string          // Optional: memory or store (default: memory)
	TrustProxy       bool            // Optional: key rate limits on X-Forwarded-For (default: false)
	RateLimitRules   httpx.PathRules // RATELIMIT_<PATH>_REQUESTS / _WINDOW_SEC overrides

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8000)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Stale rate window sweep interval (default: 1m)

	SentryDSN              string  // Optional: report errors and panics to Sentry
	SentryTracesSampleRate float64 // Optional: share of requests traced (default: 0.1)
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Issuer:     getEnvOrDefault("AUTH_ISSUER", "boofmebel-auth"),
		SecretKey:  os.Getenv("AUTH_SECRET_KEY"),
		Algorithm:  getEnvOrDefault("AUTH_JWT_ALG", jwtx.AlgHS256),
		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		DatabaseDriver: strings.ToLower(getEnvOrDefault("AUTH_DATABASE_DRIVER", DriverSQLite)),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		CORSOrigins:      splitList(os.Getenv("CORS_ORIGINS")),
		RateLimitBackend: strings.ToLower(getEnvOrDefault("RATELIMIT_BACKEND", BackendMemory)),
		TrustProxy:       getEnvBoolOrDefault("RATELIMIT_TRUST_PROXY", false),
		RateLimitRules:   httpx.DefaultPathRules(),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8000),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Minute),

		SentryDSN:              os.Getenv("SENTRY_DSN"),
		SentryTracesSampleRate: getEnvFloatOrDefault("SENTRY_TRACES_SAMPLE_RATE", 0.1),
	}

	if cfg.SecretKey == "" && cfg.Env == "dev" {
		cfg.SecretKey = devSecretKey
	}

	return cfg, cfg.Validate()
}

// Validate reports the first setting the service cannot start with.
func (c Config) Validate() error {
	switch {
	case c.SecretKey == "":
		return errors.New("AUTH_SECRET_KEY is required outside dev")
	case len(c.SecretKey) < jwtx.MinSecretLength:
		return fmt.Errorf("AUTH_SECRET_KEY must be at least %d bytes", jwtx.MinSecretLength)
	case c.AccessTTL <= 0 || c.RefreshTTL <= 0:
		return errors.New("token TTLs must be positive")
	case c.DatabaseDriver != DriverSQLite && c.DatabaseDriver != DriverPostgres:
		return fmt.Errorf("unknown AUTH_DATABASE_DRIVER %q", c.DatabaseDriver)
	case c.DatabaseDriver == DriverPostgres && c.DatabaseURL == "":
		return errors.New("DATABASE_URL is required for the postgres driver")
	case c.RateLimitBackend != BackendMemory && c.RateLimitBackend != BackendStore:
		return fmt.Errorf("unknown RATELIMIT_BACKEND %q", c.RateLimitBackend)
	case c.SentryTracesSampleRate < 0 || c.SentryTracesSampleRate > 1:
		return errors.New("SENTRY_TRACES_SAMPLE_RATE must be between 0 and 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
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
