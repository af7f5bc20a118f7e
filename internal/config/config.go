package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	ListenAddr  string
	BaseURL     string

	DBType          string
	DBPath          string
	DBHost          string
	DBPort          string
	DBName          string
	DBUser          string
	DBPassword      string
	DBSSLMode       string
	DBBusyTimeoutMS int
	DBMaxIdleConn   int
	DBMaxOpenConn   int

	RateLimit RateLimitConfig
	Abuse     AbuseConfig
	Sweep     SweepConfig
	Stripe    StripeConfig
}

// RateLimitConfig configures the three limiter tiers. Rates are tokens per
// second, bursts are bucket capacities.
type RateLimitConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GlobalRate  float64
	GlobalBurst int
	APIRate     float64
	APIBurst    int
	AuthRate    float64
	AuthBurst   int
}

// AbuseConfig controls when repeated rate-limit rejections escalate an IP to
// a temporary block.
type AbuseConfig struct {
	Window           time.Duration
	Threshold        int
	BlockDuration    time.Duration
	AttemptRetention time.Duration
}

// SweepConfig controls the background cleanup cadence.
type SweepConfig struct {
	BlockInterval   time.Duration
	AttemptInterval time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "warden"),
		AppVersion:  getenv("APP_VERSION", "1.0.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		ListenAddr:  getenv("LISTEN_ADDR", ":3000"),
		BaseURL:     getenv("APP_URL", "http://localhost:3000"),

		DBType:          getenv("DATABASE_TYPE", "sqlite"),
		DBPath:          getenv("DATABASE_PATH", "data/data.db"),
		DBHost:          getenv("DATABASE_HOST", "localhost"),
		DBPort:          getenv("DATABASE_PORT", "5432"),
		DBName:          getenv("DATABASE_NAME", "warden"),
		DBUser:          getenv("DATABASE_USER", "warden"),
		DBPassword:      getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:       getenv("DATABASE_SSLMODE", "disable"),
		DBBusyTimeoutMS: getenvInt("DATABASE_BUSY_TIMEOUT_MS", 3000),
		DBMaxIdleConn:   getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:   getenvInt("DATABASE_MAX_OPEN_CONN", 8),

		RateLimit: RateLimitConfig{
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),
			GlobalRate:    getenvFloat("RATE_LIMIT_GLOBAL_RATE", 10),
			GlobalBurst:   getenvInt("RATE_LIMIT_GLOBAL_BURST", 300),
			APIRate:       getenvFloat("RATE_LIMIT_API_RATE", 2),
			APIBurst:      getenvInt("RATE_LIMIT_API_BURST", 100),
			AuthRate:      getenvFloat("RATE_LIMIT_AUTH_RATE", 0.5),
			AuthBurst:     getenvInt("RATE_LIMIT_AUTH_BURST", 20),
		},
		Abuse: AbuseConfig{
			Window:           getenvDuration("ABUSE_WINDOW", 15*time.Minute),
			Threshold:        getenvInt("ABUSE_THRESHOLD", 10),
			BlockDuration:    getenvDuration("ABUSE_BLOCK_DURATION", time.Hour),
			AttemptRetention: getenvDuration("ABUSE_ATTEMPT_RETENTION", 30*24*time.Hour),
		},
		Sweep: SweepConfig{
			BlockInterval:   getenvDuration("SWEEP_BLOCK_INTERVAL", time.Hour),
			AttemptInterval: getenvDuration("SWEEP_ATTEMPT_INTERVAL", 24*time.Hour),
		},
		Stripe: StripeConfig{
			SecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
