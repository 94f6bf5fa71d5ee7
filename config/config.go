package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Market data feed
	StreamURL    string
	SeriesWindow int

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisStream   string
	SQLitePath    string
	MetricsAddr   string

	// Alert rate limiting
	AlertMaxPerHour int
	AlertMaxPerDay  int

	// Notification dispatch
	RetryAttempts   string
	EmailMaxPerHour int
	EmailMaxPerDay  int

	// Channel credentials (a channel is enabled when its config is set)
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string
	SMTPHost         string
	SMTPPort         string
	SMTPFrom         string
	SMTPTo           string
	SMTPUsername     string
	SMTPPassword     string

	// Symbols to track (comma-separated, e.g. "BTCUSDT,ETHUSDT")
	Symbols string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		StreamURL:    getEnv("STREAM_URL", "ws://localhost:9001/ws"),
		SeriesWindow: getEnvInt("SERIES_WINDOW", 200),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisStream:   getEnv("REDIS_STREAM", "alerts:events"),
		SQLitePath:    getEnv("SQLITE_PATH", "data/alerts.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		AlertMaxPerHour: getEnvInt("ALERT_MAX_PER_HOUR", 0),
		AlertMaxPerDay:  getEnvInt("ALERT_MAX_PER_DAY", 0),

		RetryAttempts:   getEnv("RETRY_ATTEMPTS", "3"),
		EmailMaxPerHour: getEnvInt("EMAIL_MAX_PER_HOUR", 10),
		EmailMaxPerDay:  getEnvInt("EMAIL_MAX_PER_DAY", 50),

		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnv("SMTP_PORT", "587"),
		SMTPFrom:         getEnv("SMTP_FROM", ""),
		SMTPTo:           getEnv("SMTP_TO", ""),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),

		Symbols: getEnv("SYMBOLS", "BTCUSDT"),
	}
}

// ParseSymbols splits the Symbols string into a cleaned slice.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		symbols = append(symbols, p)
	}
	return symbols
}

// ParseRetryAttempts parses RetryAttempts, falling back to 3 on bad input.
func (c *Config) ParseRetryAttempts() int {
	n, err := strconv.Atoi(strings.TrimSpace(c.RetryAttempts))
	if err != nil || n < 1 {
		log.Printf("[config] invalid RETRY_ATTEMPTS %q, using 3", c.RetryAttempts)
		return 3
	}
	return n
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
