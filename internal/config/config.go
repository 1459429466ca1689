// Package config provides configuration for the SafeBite orchestrator.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the orchestrator configuration.
type Config struct {
	// Server settings
	HTTPPort     int
	AllowOrigins []string
	BodyLimit    string

	// LLM
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMSearchModel string
	LLMTimeout     time.Duration
	RunMode        string
	MaxToolTurns   int
	RunTimeout     time.Duration

	// Remote orchestration backend
	StarterPackURL     string
	StarterPackTimeout time.Duration
	MockStarterPack    bool

	// Providers
	OpenFoodFactsURL   string
	OpenFDAURL         string
	OpenFDAAPIKey      string
	ProviderTimeout    time.Duration
	ProviderMaxRetries int
	FoodKeeperPath     string
	ToolPolicyPath     string

	// Voice
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string

	// Sessions
	SessionTTL      time.Duration
	SessionCapacity int

	// Logging
	LogLevel string
}

// Load loads configuration from .env files and environment variables.
func Load() *Config {
	loadEnvFiles()

	cfg := &Config{
		HTTPPort:           getEnvInt("HTTP_PORT", getEnvInt("PORT", 8000)),
		AllowOrigins:       splitList(getEnv("ALLOW_ORIGINS", "*")),
		BodyLimit:          getEnv("BODY_LIMIT", "10M"),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:          getEnv("LLM_API_KEY", os.Getenv("API_KEY")),
		LLMModel:           getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMSearchModel:     getEnv("LLM_SEARCH_MODEL", "gpt-4o-mini-search-preview"),
		LLMTimeout:         getEnvDuration("LLM_TIMEOUT_MS", 60*time.Second),
		RunMode:            getEnv("RUN_MODE", "local"),
		MaxToolTurns:       getEnvInt("MAX_TOOL_TURNS", 7),
		RunTimeout:         getEnvDuration("RUN_TIMEOUT_MS", 3*time.Minute),
		StarterPackURL:     getEnv("STARTER_PACK_URL", ""),
		StarterPackTimeout: getEnvDuration("STARTER_PACK_TIMEOUT_MS", 30*time.Second),
		MockStarterPack:    getEnvBool("MOCK_STARTER_PACK", false),
		OpenFoodFactsURL:   getEnv("OPENFOODFACTS_URL", "https://world.openfoodfacts.org"),
		OpenFDAURL:         getEnv("OPENFDA_URL", "https://api.fda.gov"),
		OpenFDAAPIKey:      getEnv("OPENFDA_API_KEY", ""),
		ProviderTimeout:    getEnvDuration("PROVIDER_TIMEOUT_MS", 10*time.Second),
		ProviderMaxRetries: getEnvInt("PROVIDER_MAX_RETRIES", 2),
		FoodKeeperPath:     getEnv("FOODKEEPER_PATH", ""),
		ToolPolicyPath:     getEnv("TOOL_POLICY_PATH", ""),
		ElevenLabsAPIKey:   getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:  getEnv("ELEVENLABS_VOICE_ID", ""),
		SessionTTL:         getEnvDuration("SESSION_TTL_MS", 15*time.Minute),
		SessionCapacity:    getEnvInt("SESSION_CAPACITY", 10000),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

// LLMConfigured reports whether an LLM credential is available.
func (c *Config) LLMConfigured() bool {
	return c.LLMAPIKey != ""
}

// ParseLogLevel maps a level name to a logrus level, defaulting to info.
func ParseLogLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func loadEnvFiles() {
	for _, file := range []string{".env", ".env.local"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		// Process environment wins over files.
		_ = godotenv.Load(file)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a millisecond count.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
