package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	SigningSecret string // Required: HS256 signing secret for all tokens
	Issuer        string // Issuer claim for tokens (default: microplate-auth)
	Audience      string // Audience claim for tokens (default: microplate-api)

	AccessTokenTTL   time.Duration // Access token lifetime (default: 15m)
	RefreshTokenTTL  time.Duration // Refresh token lifetime (default: 720h)
	ResetTokenTTL    time.Duration // Password reset token lifetime (default: 30m)
	ExchangeTokenTTL time.Duration // SSO exchange token lifetime (default: 30s)
	OTPTokenTTL      time.Duration // OTP code and companion token lifetime (default: 5m)

	MinPasswordLength int // Password policy floor for resets (default: 8)

	OTPDigits         int           // Length of numeric codes (default: 6)
	OTPThrottleLimit  int           // Codes issued per identifier per window (default: 3)
	OTPThrottleWindow time.Duration // Issuance throttle window (default: 1m)

	SMTPHost     string // Optional: SMTP relay host; empty disables email delivery
	SMTPPort     string // SMTP relay port (default: 587)
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string // Sender address (default: no-reply@localhost)

	DatabaseFile         string        // Path to SQLite database file (default: ./auth.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	AuditQueueSize       int           // Bounded audit event queue (default: 256)
}

// ErrMissingSecret is returned when AUTH_SIGNING_SECRET is unset. There is no
// safe default for a signing secret.
var ErrMissingSecret = errors.New("AUTH_SIGNING_SECRET must be set")

func LoadConfig() (Config, error) {
	cfg := Config{
		SigningSecret: os.Getenv("AUTH_SIGNING_SECRET"),
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "microplate-auth"),
		Audience:      getEnvOrDefault("AUTH_AUDIENCE", "microplate-api"),

		AccessTokenTTL:   getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", 30*24*time.Hour),
		ResetTokenTTL:    getEnvDurationOrDefault("AUTH_RESET_TOKEN_TTL", 30*time.Minute),
		ExchangeTokenTTL: getEnvDurationOrDefault("AUTH_EXCHANGE_TOKEN_TTL", 30*time.Second),
		OTPTokenTTL:      getEnvDurationOrDefault("AUTH_OTP_TTL", 5*time.Minute),

		MinPasswordLength: getEnvIntOrDefault("AUTH_MIN_PASSWORD_LENGTH", 8),

		OTPDigits:         getEnvIntOrDefault("AUTH_OTP_DIGITS", 6),
		OTPThrottleLimit:  getEnvIntOrDefault("AUTH_OTP_THROTTLE_LIMIT", 3),
		OTPThrottleWindow: getEnvDurationOrDefault("AUTH_OTP_THROTTLE_WINDOW", time.Minute),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "no-reply@localhost"),

		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		AuditQueueSize:       getEnvIntOrDefault("AUDIT_QUEUE_SIZE", 256),
	}

	if cfg.SigningSecret == "" {
		return Config{}, ErrMissingSecret
	}

	return cfg, nil
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Parses as a duration string ("1h", "30m", "90s") with integer minutes
	// accepted for backwards compatibility.
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
