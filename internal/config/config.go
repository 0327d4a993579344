package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Oracle providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Port     int
	LogLevel string
	APIKey   string

	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string
	OracleProvider  string
	OracleTimeout   time.Duration

	HoneypotThreshold  float64
	HoneypotMaxTurns   int
	HoneypotNoProgress int

	CacheTTL  time.Duration
	CacheSize int

	SessionTTL time.Duration

	NatsURL       string
	NatsToken     string
	DatabaseURL   string
	AutoMigrate   bool
	RedisAddr     string
	RedisPassword string

	RateLimitPerMinute int
	RateLimitPerHour   int

	SlackBotToken string
	SlackChannel  string

	BatchStatePath string
}

// LoadDotEnv reads path (default .env) into the environment if it exists.
// Variables already set are not overridden.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() Config {
	return Config{
		Port:     envInt("BLOCKSAFE_PORT", 8760),
		LogLevel: envStr("LOG_LEVEL", "info"),
		APIKey:   envStr("BLOCKSAFE_API_KEY", ""),

		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("BLOCKSAFE_ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		GeminiAPIKey:    envStr("GEMINI_API_KEY", ""),
		GeminiModel:     envStr("BLOCKSAFE_GEMINI_MODEL", "gemini-1.5-flash"),
		OracleProvider:  strings.ToLower(envStr("ORACLE_PROVIDER", ProviderGemini)),
		OracleTimeout:   envDuration("ORACLE_TIMEOUT", 20*time.Second),

		HoneypotThreshold:  envFloat("HONEYPOT_CONFIDENCE_THRESHOLD", 0.85),
		HoneypotMaxTurns:   envInt("HONEYPOT_MAX_TURNS", 5),
		HoneypotNoProgress: envInt("HONEYPOT_NO_PROGRESS_TURNS", 2),

		CacheTTL:  envDuration("VERDICT_CACHE_TTL", 5*time.Minute),
		CacheSize: envInt("VERDICT_CACHE_SIZE", 100),

		SessionTTL: envDuration("SESSION_TTL", 30*time.Minute),

		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		AutoMigrate:   envBool("DATABASE_AUTO_MIGRATE", true),
		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),

		RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitPerHour:   envInt("RATE_LIMIT_PER_HOUR", 1000),

		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_ALERT_CHANNEL", ""),

		BatchStatePath: envStr("BATCH_STATE_PATH", "blocksafe-batch-state.json"),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.HoneypotThreshold < 0 || c.HoneypotThreshold > 1 {
		errs = append(errs, fmt.Errorf("HONEYPOT_CONFIDENCE_THRESHOLD must be within [0,1], got %v", c.HoneypotThreshold))
	}
	if c.HoneypotMaxTurns < 1 {
		errs = append(errs, fmt.Errorf("HONEYPOT_MAX_TURNS must be at least 1, got %d", c.HoneypotMaxTurns))
	}
	if c.HoneypotNoProgress < 1 {
		errs = append(errs, fmt.Errorf("HONEYPOT_NO_PROGRESS_TURNS must be at least 1, got %d", c.HoneypotNoProgress))
	}
	if c.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("VERDICT_CACHE_SIZE must be at least 1, got %d", c.CacheSize))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("VERDICT_CACHE_TTL must be positive, got %s", c.CacheTTL))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL))
	}
	if c.OracleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ORACLE_TIMEOUT must be positive, got %s", c.OracleTimeout))
	}
	if c.RateLimitPerMinute < 1 || c.RateLimitPerHour < 1 {
		errs = append(errs, errors.New("rate limits must be at least 1"))
	}
	switch c.OracleProvider {
	case ProviderGemini, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("ORACLE_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderAnthropic, c.OracleProvider))
	}
	if c.AnthropicAPIKey == "" && c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("one of ANTHROPIC_API_KEY or GEMINI_API_KEY is required"))
	}
	return errors.Join(errs...)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("20s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
