package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// CheckoutBaseURL is the public origin prefixed to checkout handles
	// returned by purchase creation.
	CheckoutBaseURL string

	// WebhookURL is the exact notification URL registered with the payment
	// provider; signatures are computed over it plus the raw body.
	WebhookURL string

	// WebhookSignatureKey is the shared secret for webhook verification.
	WebhookSignatureKey string

	// WebhookSkipVerification disables signature checks. Only honored
	// outside production, for provider validation pings and local testing.
	WebhookSkipVerification bool

	// ProcessorBaseURL and ProcessorToken configure the outbound payment
	// processor client used for refund submission.
	ProcessorBaseURL string
	ProcessorToken   string
	ProcessorTimeout int // seconds

	LogLevel string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	// RateLimitEnabled turns on Redis-backed throttling of the public
	// checkout and webhook endpoints.
	RateLimitEnabled bool
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CheckoutRate     float64 // tokens per second, per client IP
	CheckoutBurst    int
	WebhookRate      float64 // tokens per second, per provider
	WebhookBurst     int

	// SeedDemoData inserts a small demo catalog on startup so a fresh
	// local install has something to sell.
	SeedDemoData bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	skipVerification := getenvBool("WEBHOOK_SKIP_VERIFICATION", false)
	if environment == "production" {
		skipVerification = false
	}

	return Config{
		AppName:     getenv("APP_SERVICE", "paywall"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		CheckoutBaseURL: strings.TrimRight(getenv("CHECKOUT_BASE_URL", "http://localhost:8080"), "/"),

		WebhookURL:              strings.TrimSpace(getenv("WEBHOOK_URL", "")),
		WebhookSignatureKey:     strings.TrimSpace(getenv("WEBHOOK_SIGNATURE_KEY", "")),
		WebhookSkipVerification: skipVerification,

		ProcessorBaseURL: strings.TrimRight(getenv("PROCESSOR_BASE_URL", ""), "/"),
		ProcessorToken:   strings.TrimSpace(getenv("PROCESSOR_TOKEN", "")),
		ProcessorTimeout: getenvInt("PROCESSOR_TIMEOUT_SECONDS", 10),

		LogLevel: getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "paywall"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RateLimitEnabled: getenvBool("RATE_LIMIT_ENABLED", false),
		RedisAddr:        getenv("REDIS_ADDR", ""),
		RedisPassword:    getenv("REDIS_PASSWORD", ""),
		RedisDB:          getenvInt("REDIS_DB", 0),
		CheckoutRate:     getenvFloat("CHECKOUT_RATE_LIMIT", 1),
		CheckoutBurst:    getenvInt("CHECKOUT_RATE_BURST", 5),
		WebhookRate:      getenvFloat("WEBHOOK_RATE_LIMIT", 20),
		WebhookBurst:     getenvInt("WEBHOOK_RATE_BURST", 100),

		SeedDemoData: getenvBool("SEED_DEMO_DATA", false),

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenvInt("SMTP_PORT", 587),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", "no-reply@courtside.example"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
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
