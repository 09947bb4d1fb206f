package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultSessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"

// Config holds application configuration loaded from environment variables
type Config struct {
	Env  string
	Port string

	DatabaseURL string
	RedisURL    string
	SeedDevData bool

	SessionSecret   string
	AuthTokenSecret string
	SessionTTL      time.Duration
	EncryptionKey   string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	FrontendURL        string
	AllowedOrigins     []string

	LogLevel  string
	LogFormat string

	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	GeminiStubMode bool
	PromptsFile    string

	StorageBackend       string
	StorageBucket        string
	StorageLocalDir      string
	StoragePublicBaseURL string
	MaxUploadBytes       int64

	EmbeddedWorker       bool
	SessionPurgeSchedule string
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present; real
// environment variables always win over values from the file.
func Load() *Config {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("WARNING: failed to load .env: %v", err)
		}
	}

	cfg := &Config{
		Env:  getEnvWithDefault("ENV", "development"),
		Port: getEnvWithDefault("PORT", "8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		SeedDevData: getBoolWithDefault("SEED_DEV_DATA", false),

		SessionSecret:   os.Getenv("SESSION_SECRET"),
		AuthTokenSecret: os.Getenv("AUTH_TOKEN_SECRET"),
		SessionTTL:      getDurationWithDefault("SESSION_TTL", 7*24*time.Hour),
		EncryptionKey:   os.Getenv("ENCRYPTION_KEY"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
		FrontendURL:        getEnvWithDefault("FRONTEND_URL", "http://localhost:5173"),
		AllowedOrigins:     getListWithDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnvWithDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:  getEnvWithDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiStubMode: getBoolWithDefault("GEMINI_STUB_MODE", false),
		PromptsFile:    os.Getenv("PROMPTS_FILE"),

		StorageBackend:       getEnvWithDefault("STORAGE_BACKEND", "local"),
		StorageBucket:        getEnvWithDefault("STORAGE_BUCKET", "learning-materials"),
		StorageLocalDir:      getEnvWithDefault("STORAGE_LOCAL_DIR", "./data/storage"),
		StoragePublicBaseURL: os.Getenv("STORAGE_PUBLIC_BASE_URL"),
		MaxUploadBytes:       getInt64WithDefault("MAX_UPLOAD_BYTES", 5*1024*1024),

		EmbeddedWorker:       getBoolWithDefault("EMBEDDED_WORKER", true),
		SessionPurgeSchedule: getEnvWithDefault("SESSION_PURGE_SCHEDULE", "@hourly"),
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = defaultSessionSecret
		log.Println("WARNING: Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}
	if cfg.AuthTokenSecret == "" {
		cfg.AuthTokenSecret = cfg.SessionSecret
	}
	if cfg.StoragePublicBaseURL == "" {
		cfg.StoragePublicBaseURL = "http://localhost:" + cfg.Port
	}

	return cfg
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("WARNING: invalid boolean for %s=%q, using %t", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getInt64WithDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		log.Printf("WARNING: invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		log.Printf("WARNING: invalid duration for %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getListWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
