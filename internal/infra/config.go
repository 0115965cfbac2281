package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	GeoIPDBPath        string
	DefaultLocale      string
	CORSAllowedOrigins []string
	GeminiAPIKey       string
	GeminiBaseURL      string
	Models             Models
	SeatingThinking    int
	VideoPollInterval  time.Duration
	VideoPollAttempts  int
	VideoPollTimeout   time.Duration
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// Models holds the provider model identifier used by each action.
type Models struct {
	Plan    string
	Budget  string
	Seating string
	Advice  string
	Image   string
	Video   string
}

// LoadDotEnv reads .env and .env.local when they exist. Variables already set
// in the environment are kept.
func LoadDotEnv() {
	for _, name := range []string{".env", ".env.local"} {
		_ = godotenv.Load(name)
	}
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "pt-BR"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		GeminiAPIKey:       strings.TrimSpace(firstEnv("GEMINI_API_KEY", "API_KEY")),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		Models: Models{
			Plan:    getEnv("PLAN_MODEL", "gemini-3-pro-preview"),
			Budget:  getEnv("BUDGET_MODEL", "gemini-2.5-flash"),
			Seating: getEnv("SEATING_MODEL", "gemini-3-pro-preview"),
			Advice:  getEnv("ADVICE_MODEL", "gemini-2.5-flash-lite-latest"),
			Image:   getEnv("IMAGE_MODEL", "gemini-3-pro-image-preview"),
			Video:   getEnv("VIDEO_MODEL", "veo-3.1-fast-generate-preview"),
		},
		SeatingThinking:   getEnvInt("SEATING_THINKING_BUDGET", 2048),
		VideoPollInterval: time.Second * time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 5)),
		VideoPollAttempts: getEnvInt("VIDEO_POLL_MAX_ATTEMPTS", 120),
		VideoPollTimeout:  time.Second * time.Duration(getEnvInt("VIDEO_POLL_TIMEOUT_SECONDS", 600)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.VideoPollInterval <= 0 {
		return nil, fmt.Errorf("VIDEO_POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.VideoPollAttempts <= 0 && cfg.VideoPollTimeout <= 0 {
		return nil, fmt.Errorf("video polling must be bounded: set VIDEO_POLL_MAX_ATTEMPTS or VIDEO_POLL_TIMEOUT_SECONDS")
	}

	return cfg, nil
}

// HasDatabase reports whether a credential store can be opened.
func (c *Config) HasDatabase() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
