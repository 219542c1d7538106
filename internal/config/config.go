package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort     string
	GinMode        string
	LogLevel       string
	LogFormat      string
	ExamAPIURL     string
	ExamAPITimeout time.Duration
	RedisURL       string
	// SessionTTL bounds how long progress flags and answer drafts outlive
	// their last write in Redis.
	SessionTTL time.Duration
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string

	// Phase lengths in whole seconds.
	Teil13Seconds    int
	ListeningSeconds int
	WritingSeconds   int

	// SubmitRateLimit is the number of submit requests allowed per client
	// per minute.
	SubmitRateLimit int
	AutosaveBuffer  int
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		ServerPort:       getEnv("SERVER_PORT", "8090"),
		GinMode:          getEnv("GIN_MODE", "debug"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "auto"),
		ExamAPIURL:       getEnv("EXAM_API_URL", "http://localhost:5000"),
		ExamAPITimeout:   time.Duration(getEnvInt("EXAM_API_TIMEOUT_SECONDS", 30)) * time.Second,
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:       time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		AllowedOrigins:   parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		Teil13Seconds:    getEnvInt("TEIL13_SECONDS", 90*60),
		ListeningSeconds: getEnvInt("LISTENING_SECONDS", 20*60),
		WritingSeconds:   getEnvInt("WRITING_SECONDS", 30*60),
		SubmitRateLimit:  getEnvInt("SUBMIT_RATE_LIMIT", 30),
		AutosaveBuffer:   getEnvInt("AUTOSAVE_BUFFER", 64),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
