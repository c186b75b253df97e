package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	RedisURL      string
	JWTSecret     string
	JWTIssuer     string
	JWTTTLMinutes int
	LogVerbose    bool

	LLM    LLMConfig
	Turn   TurnConfig
	Prompt PromptConfig
}

type LLMConfig struct {
	// Provider is "openrouter" (default) or "langchain".
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	AppTitle string
	Referer  string
	Timeout  time.Duration
}

type TurnConfig struct {
	HistoryWindow int
	MaxRoundTrips int
	LockTTL       time.Duration
}

type PromptConfig struct {
	Path   string
	Locale string
}

// Load reads environment variables, optionally from a .env file if present.
func Load() Config {
	// Try to load .env if it exists; ignore error if file not found
	_ = godotenv.Load()

	return Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change"),
		JWTIssuer:     getEnv("JWT_ISSUER", "cvchat"),
		JWTTTLMinutes: getEnvInt("JWT_TTL_MINUTES", 60),
		LogVerbose:    getEnvBool("LOG_VERBOSE", false),
		LLM: LLMConfig{
			Provider: strings.ToLower(getEnv("LLM_PROVIDER", "openrouter")),
			APIKey:   os.Getenv("OPENROUTER_API_KEY"),
			BaseURL:  os.Getenv("OPENROUTER_BASE_URL"),
			Model:    os.Getenv("OPENROUTER_MODEL"),
			AppTitle: getEnv("OPENROUTER_APP_TITLE", "CV Chat"),
			Referer:  os.Getenv("OPENROUTER_REFERER"),
			Timeout:  getEnvDuration("LLM_TIMEOUT", 90*time.Second),
		},
		Turn: TurnConfig{
			HistoryWindow: getEnvInt("HISTORY_WINDOW", 20),
			MaxRoundTrips: getEnvInt("TURN_MAX_ROUND_TRIPS", 5),
			LockTTL:       getEnvDuration("TURN_LOCK_TTL", 5*time.Minute),
		},
		Prompt: PromptConfig{
			Path:   os.Getenv("PROMPT_CONFIG_PATH"),
			Locale: getEnv("PROMPT_LOCALE", "en"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
