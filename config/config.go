package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	// Backend configuration
	APIBaseURL  string
	Environment string

	// Timeout configuration
	RequestTimeout time.Duration
	RefreshTimeout time.Duration

	// Credential store configuration
	CredentialsPath   string
	CredentialsSecret string

	// Redis configuration (snapshot cache; optional)
	RedisURL      string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string

	// Payment configuration
	PaymentReturnPort int

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Backend
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8081"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Timeouts
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", "15s"),
		RefreshTimeout: getEnvAsDuration("REFRESH_TIMEOUT", "10s"),

		// Credential store
		CredentialsPath:   getEnv("CREDENTIALS_PATH", defaultCredentialsPath()),
		CredentialsSecret: getEnv("CREDENTIALS_SECRET", ""),

		// Redis
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CacheTTL:      getEnvAsDuration("CACHE_TTL", "5m"),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),

		// Payment
		PaymentReturnPort: getEnvAsInt("PAYMENT_RETURN_PORT", 0),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", false),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func defaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "credentials.enc"
	}
	return filepath.Join(home, ".bus-ticket", "credentials.enc")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
