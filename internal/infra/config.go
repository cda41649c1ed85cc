package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DatabaseURL   string
	SessionSecret string
	GeoIPDBPath   string

	DBMaxConns int32
	DBMinConns int32

	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisDB       int
	RedisDisabled bool
	RedisDialWait time.Duration

	FalAPIKey  string
	FalBaseURL string
	FalModelID string

	FalAllowedImageHosts []string
	CORSAllowedOrigins   []string

	RetryMaxAttempts        int
	RetryBaseDelay          time.Duration
	RetryMaxDelay           time.Duration
	CircuitFailureThreshold int
	CircuitOpenFor          time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration

	TryOnRateLimitMax    int
	TryOnRateLimitWindow time.Duration

	MaxActiveJobsPerClient int
	ActiveJobTTL           time.Duration
	MaxRequestBodyBytes    int64

	HTTPReadTimeout       time.Duration
	HTTPReadHeaderTimeout time.Duration
	HTTPWriteTimeout      time.Duration
	HTTPIdleTimeout       time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		GeoIPDBPath:   os.Getenv("GEOIP_DB_PATH"),

		DBMaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
		DBMinConns: int32(getEnvInt("DB_MIN_CONNS", 1)),

		RedisURL:      os.Getenv("REDIS_URL"),
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisDisabled: getEnv("REDIS_DISABLE", "false") == "true",
		RedisDialWait: time.Millisecond * time.Duration(getEnvInt("REDIS_CONNECT_TIMEOUT_MS", 2000)),

		FalAPIKey:  os.Getenv("FAL_API_KEY"),
		FalBaseURL: getEnv("FAL_BASE_URL", "https://queue.fal.run"),
		FalModelID: normalizeModelID(os.Getenv("FAL_MODEL_ID")),

		FalAllowedImageHosts: splitHosts(os.Getenv("FAL_ALLOWED_IMAGE_HOSTS")),
		CORSAllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		RetryMaxAttempts:        getEnvInt("FAL_RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:          time.Millisecond * time.Duration(getEnvInt("FAL_RETRY_BASE_DELAY_MS", 500)),
		RetryMaxDelay:           time.Millisecond * time.Duration(getEnvInt("FAL_RETRY_MAX_DELAY_MS", 5000)),
		CircuitFailureThreshold: getEnvInt("FAL_CIRCUIT_FAILURE_THRESHOLD", 5),
		CircuitOpenFor:          time.Millisecond * time.Duration(getEnvInt("FAL_CIRCUIT_OPEN_MS", 30000)),

		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitWindow: time.Minute * time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MINUTES", 15)),

		TryOnRateLimitMax:    getEnvInt("TRYON_RATE_LIMIT_MAX_REQUESTS", 20),
		TryOnRateLimitWindow: time.Second * time.Duration(getEnvInt("TRYON_RATE_LIMIT_WINDOW_SECONDS", 60)),

		MaxActiveJobsPerClient: getEnvInt("TRYON_MAX_ACTIVE_JOBS", 5),
		ActiveJobTTL:           time.Minute * time.Duration(getEnvInt("TRYON_ACTIVE_JOB_TTL_MINUTES", 30)),
		MaxRequestBodyBytes:    int64(getEnvInt("TRYON_MAX_REQUEST_BODY_BYTES", 32*1024)),

		HTTPReadTimeout:       time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPReadHeaderTimeout: time.Second * time.Duration(getEnvInt("HTTP_READ_HEADER_TIMEOUT_SECONDS", 5)),
		HTTPWriteTimeout:      time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:       time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	return cfg, nil
}

// RedisAddr returns the host:port pair used when REDIS_URL is not set.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

const defaultModelID = "fal-ai/nano-banana/edit"

func normalizeModelID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultModelID
	}
	if strings.Contains(raw, "/") {
		return raw
	}
	return "fal-ai/" + raw
}

func splitHosts(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	hosts := make([]string, 0, len(parts))
	for _, part := range parts {
		host := strings.ToLower(strings.TrimSpace(part))
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	if len(hosts) == 0 {
		return nil
	}
	return hosts
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
