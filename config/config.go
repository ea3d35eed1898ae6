package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// Config is built once at startup from the environment and passed
// explicitly to the components that need it.
type Config struct {
	Environment string
	Port        string
	DatabaseURL string
	BrokerURL   string

	JWTSecret    string
	JWTExpiryMin int

	AllowedOrigins []string

	ScoreRefreshSecs int
	SessionIdleSecs  int

	// Firebase Config
	PushCredentialsPath string

	// Twilio Config
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// App Settings
	LocationRetentionDays int
	RateLimitRequests     int
	RateLimitWindowMin    int
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "mongodb://localhost:27017/safehorizon"),
		BrokerURL:   getEnv("BROKER_URL", "redis://localhost:6379"),

		JWTSecret:    getEnv("JWT_SECRET", "change-me-in-production-32-bytes!"),
		JWTExpiryMin: getEnvAsInt("JWT_EXPIRY_MIN", 1440),

		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "*")),

		ScoreRefreshSecs: getEnvAsInt("SCORE_REFRESH_SECS", 30),
		SessionIdleSecs:  getEnvAsInt("SESSION_IDLE_SECS", 120),

		PushCredentialsPath: getEnv("PUSH_CREDENTIALS_PATH", ""),

		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		LocationRetentionDays: getEnvAsInt("LOCATION_RETENTION_DAYS", 90),
		RateLimitRequests:     getEnvAsInt("RATE_LIMIT_REQUESTS", 300),
		RateLimitWindowMin:    getEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 1),
	}
}

// JWTExpiry returns the configured token lifetime.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryMin) * time.Minute
}

// ZoneRefreshInterval returns the geofence snapshot refresh period.
func (c *Config) ZoneRefreshInterval() time.Duration {
	return time.Duration(c.ScoreRefreshSecs) * time.Second
}

// SessionIdleTimeout returns the websocket idle close threshold.
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleSecs) * time.Second
}

// InitRedis connects the pub/sub broker client.
func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.BrokerURL)
	if err != nil {
		// Fallback to default config
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	client := redis.NewClient(opt)
	return client
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
