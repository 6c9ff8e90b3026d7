package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort  string
	LogLevel string

	// PostgresDSN empty disables name record persistence.
	PostgresDSN string

	// NATSURL empty disables batch lifecycle events.
	NATSURL           string
	NATSSubjectPrefix string

	AIProvider   string
	GeminiAPIKey string
	GeminiModel  string
	GeminiURL    string
	OllamaURL    string
	OllamaModel  string

	// NamingMode is "local" to call the AI model in-process or "remote" to
	// send batch items to NamingEndpointURL.
	NamingMode           string
	NamingEndpointURL    string
	NamingTimeoutSeconds int
	RecordTimeoutSeconds int

	StoragePath             string
	ArchiveCollisionPolicy  string
	ArchiveFetchConcurrency int
	RequireImages           bool
	MaxUploadMB             int

	APIRateLimitRPS        float64
	APIRateLimitBurst      int
	APIBackpressureMax     int
	APIBackpressureWaitMS  int
	AIRateLimitRPS         float64
	AIRateLimitBurst       int
	AIBreakerEnabled       bool
	AIBreakerMinRequests   int
	AIBreakerFailureRatio  float64
	AIBreakerOpenTimeoutMS int
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:           mustEnv("NATS_URL", ""),
		NATSSubjectPrefix: mustEnv("NATS_SUBJECT_PREFIX", "renamer"),

		AIProvider:   mustEnv("AI_PROVIDER", "gemini"),
		GeminiAPIKey: mustEnv("GEMINI_API_KEY", ""),
		GeminiModel:  mustEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiURL:    mustEnv("GEMINI_URL", "https://generativelanguage.googleapis.com"),
		OllamaURL:    mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:  mustEnv("OLLAMA_MODEL", "llava:7b"),

		NamingMode:           mustEnv("NAMING_MODE", "local"),
		NamingEndpointURL:    mustEnv("NAMING_ENDPOINT_URL", "http://localhost:8080"),
		NamingTimeoutSeconds: mustEnvInt("NAMING_TIMEOUT_SECONDS", 60),
		RecordTimeoutSeconds: mustEnvInt("RECORD_TIMEOUT_SECONDS", 5),

		StoragePath:             mustEnv("STORAGE_PATH", "./data/previews"),
		ArchiveCollisionPolicy:  mustEnv("ARCHIVE_COLLISION_POLICY", "last-write-wins"),
		ArchiveFetchConcurrency: mustEnvInt("ARCHIVE_FETCH_CONCURRENCY", 4),
		RequireImages:           mustEnvBool("REQUIRE_IMAGES", true),
		MaxUploadMB:             mustEnvInt("MAX_UPLOAD_MB", 64),

		APIRateLimitRPS:        mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:      mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIBackpressureMax:     mustEnvInt("API_BACKPRESSURE_MAX_IN_FLIGHT", 0),
		APIBackpressureWaitMS:  mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),
		AIRateLimitRPS:         mustEnvFloat("AI_RATE_LIMIT_RPS", 0),
		AIRateLimitBurst:       mustEnvInt("AI_RATE_LIMIT_BURST", 1),
		AIBreakerEnabled:       mustEnvBool("AI_BREAKER_ENABLED", true),
		AIBreakerMinRequests:   mustEnvInt("AI_BREAKER_MIN_REQUESTS", 10),
		AIBreakerFailureRatio:  mustEnvFloat("AI_BREAKER_FAILURE_RATIO", 0.5),
		AIBreakerOpenTimeoutMS: mustEnvInt("AI_BREAKER_OPEN_TIMEOUT_MS", 30000),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
