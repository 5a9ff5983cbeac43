package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"video-dashboard/internal/shared/telemetry"
)

// Preference store backends.
const (
	PrefsStoreMemory   = "memory"
	PrefsStoreLocal    = "local"
	PrefsStoreS3       = "s3"
	PrefsStorePostgres = "postgres"
	PrefsStoreRedis    = "redis"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string

	BackendURL     string
	BackendTimeout time.Duration

	PollInterval    time.Duration
	PollBackoff     float64
	PollMaxInterval time.Duration

	PrefsStore    string
	PrefsProfile  string
	LocalStoreDir string
	AWSRegion     string
	S3Bucket      string
	S3Prefix      string
	SSEKMSKeyID   string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NotifyQueueURL string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	prefsStore := normalizePrefsStore(getEnv("PREFS_STORE", PrefsStoreLocal))
	dbURL := os.Getenv("DATABASE_URL")

	if prefsStore == PrefsStorePostgres && dbURL == "" {
		telemetry.Warn("config.database_url.missing", map[string]any{"prefs_store": prefsStore})
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		BackendURL:      getEnv("BACKEND_URL", "http://localhost:8000/api"),
		BackendTimeout:  getEnvDuration("BACKEND_TIMEOUT", 30*time.Second),
		PollInterval:    getEnvDuration("POLL_INTERVAL", 3*time.Second),
		PollBackoff:     getEnvFloat("POLL_BACKOFF", 1),
		PollMaxInterval: getEnvDuration("POLL_MAX_INTERVAL", time.Minute),
		PrefsStore:      prefsStore,
		PrefsProfile:    getEnv("PREFS_PROFILE", "default"),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     dbURL,
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		NotifyQueueURL:  getEnv("NOTIFY_SQS_QUEUE_URL", ""),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvDuration accepts Go durations ("3s") or bare milliseconds ("3000").
func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		if ms <= 0 {
			return def
		}
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		telemetry.Warn("config.env.invalid", map[string]any{"key": key, "value": raw})
		return def
	}
	return d
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.env.invalid", map[string]any{"key": key, "value": raw})
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		telemetry.Warn("config.env.invalid", map[string]any{"key": key, "value": raw})
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizePrefsStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "memory", "mem":
		return PrefsStoreMemory
	case "s3":
		return PrefsStoreS3
	case "postgres", "pg":
		return PrefsStorePostgres
	case "redis":
		return PrefsStoreRedis
	default:
		return PrefsStoreLocal
	}
}
