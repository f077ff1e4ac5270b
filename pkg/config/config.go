package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	CORSAllowedOrigins []string

	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabaseSSLMode  string

	RedisURL string

	JWTSecret string
	TokenTTL  time.Duration

	// Account lockout policy: after MaxLoginAttempts consecutive failures
	// the account is locked for LockoutDuration.
	MaxLoginAttempts int
	LockoutDuration  time.Duration

	RateLimitPerMinute  int
	LoginRateLimit      int
	NotificationQueue   string
	DispatchPollTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DATABASE_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_PORT: %w", err)
	}

	tokenTTLMinutes, err := strconv.Atoi(getEnv("TOKEN_TTL_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_MINUTES: %w", err)
	}

	maxLoginAttempts, err := strconv.Atoi(getEnv("MAX_LOGIN_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_LOGIN_ATTEMPTS: %w", err)
	}

	lockoutMinutes, err := strconv.Atoi(getEnv("LOCKOUT_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCKOUT_MINUTES: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	loginRateLimit, err := strconv.Atoi(getEnv("LOGIN_RATE_LIMIT_PER_MINUTE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_RATE_LIMIT_PER_MINUTE: %w", err)
	}

	dispatchPollSeconds, err := strconv.Atoi(getEnv("DISPATCH_POLL_SECONDS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_POLL_SECONDS: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		DatabaseHost:        getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:        dbPort,
		DatabaseUser:        getEnv("DATABASE_USER", "workorbit"),
		DatabasePassword:    getEnv("DATABASE_PASSWORD", "dev"),
		DatabaseName:        getEnv("DATABASE_NAME", "workorbit"),
		DatabaseSSLMode:     getEnv("DATABASE_SSLMODE", "disable"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		TokenTTL:            time.Duration(tokenTTLMinutes) * time.Minute,
		MaxLoginAttempts:    maxLoginAttempts,
		LockoutDuration:     time.Duration(lockoutMinutes) * time.Minute,
		RateLimitPerMinute:  rateLimit,
		LoginRateLimit:      loginRateLimit,
		NotificationQueue:   getEnv("NOTIFICATION_QUEUE", "workorbit:notifications"),
		DispatchPollTimeout: time.Duration(dispatchPollSeconds) * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
