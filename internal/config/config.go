package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Rag      RagConfig
	Store    StoreConfig
	Identity IdentityConfig
	Storage  StorageConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

// RagConfig describes the external research backend.
type RagConfig struct {
	BaseURL            string
	SimpleTimeout      time.Duration
	SummaryTimeout     time.Duration
	DeepSearchTimeout  time.Duration
	HealthTimeout      time.Duration
	CacheTTL           time.Duration
	MaxRetries         int
	RetryBaseDelay     time.Duration
	HistoryLimit       int
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// StoreConfig selects the durable key-value backend for cache, history and canvas state.
type StoreConfig struct {
	Driver     string // "memory" | "redis" | "badger"
	BadgerPath string
	KeyPrefix  string
}

type IdentityConfig struct {
	BaseURL string
	APIKey  string
}

type StorageConfig struct {
	RootDir      string
	SignedURLTTL time.Duration
	MaxFileSize  int
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Rag: RagConfig{
			BaseURL:            getEnv("RAG_API_URL", "http://localhost:8000"),
			SimpleTimeout:      getEnvAsDuration("RAG_SIMPLE_TIMEOUT", 30*time.Second),
			SummaryTimeout:     getEnvAsDuration("RAG_SUMMARY_TIMEOUT", 300*time.Second),
			DeepSearchTimeout:  getEnvAsDuration("RAG_DEEP_SEARCH_TIMEOUT", 180*time.Second),
			HealthTimeout:      getEnvAsDuration("RAG_HEALTH_TIMEOUT", 10*time.Second),
			CacheTTL:           getEnvAsDuration("RAG_CACHE_TTL", time.Hour),
			MaxRetries:         getEnvAsInt("RAG_MAX_RETRIES", 3),
			RetryBaseDelay:     getEnvAsDuration("RAG_RETRY_BASE_DELAY", time.Second),
			HistoryLimit:       getEnvAsInt("RAG_HISTORY_LIMIT", 50),
			RateLimitPerSecond: getEnvAsFloat("RAG_RATE_LIMIT", 0),
			RateLimitBurst:     getEnvAsInt("RAG_RATE_BURST", 5),
		},
		Store: StoreConfig{
			Driver:     getEnv("STORE_DRIVER", "memory"),
			BadgerPath: getEnv("BADGER_PATH", "data/state"),
			KeyPrefix:  getEnv("STORE_KEY_PREFIX", ""),
		},
		Identity: IdentityConfig{
			BaseURL: getEnv("IDENTITY_URL", ""),
			APIKey:  getEnv("IDENTITY_ANON_KEY", ""),
		},
		Storage: StorageConfig{
			RootDir:      getEnv("STORAGE_ROOT", "./uploads"),
			SignedURLTTL: getEnvAsDuration("STORAGE_SIGNED_URL_TTL", time.Hour),
			MaxFileSize:  getEnvAsInt("STORAGE_MAX_FILE_SIZE", 10*1024*1024),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "compliance-assistant-backend"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("30s") or plain milliseconds ("30000").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
