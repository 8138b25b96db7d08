package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"spendwatch/internal/api"
	"spendwatch/internal/core"
)

type Config struct {
	// HTTP Server
	Port         string
	RateLimitRPM int

	// Remote API
	APIBaseURL string
	APITimeout time.Duration

	// Reporting
	Timezone         string
	DefaultThreshold string
	CacheTTL         time.Duration
	CacheSize        int

	LogLevel  string
	LogFormat string

	// Alert state
	StateBackend string
	SQLiteDBPath string

	// Notification
	Notifier       string
	WorkerNotifier string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	TelegramBotToken string
	TelegramChatID   int64

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Scheduled checks
	WatchSchedule string
	WatchUserID   string
	WatchToken    string

	// CLI
	SessionFile string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", 120),

		APIBaseURL: getEnv("API_BASE_URL", api.DefaultBaseURL),
		APITimeout: getEnvDuration("API_TIMEOUT", 15*time.Second),

		Timezone:         getEnv("TIMEZONE", "Local"),
		DefaultThreshold: getEnv("DEFAULT_THRESHOLD", core.DefaultThreshold.String()),
		CacheTTL:         getEnvDuration("CACHE_TTL", 30*time.Second),
		CacheSize:        getEnvInt("CACHE_SIZE", 256),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		StateBackend: getEnv("STATE_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spendwatch.db"),

		Notifier:       getEnv("NOTIFIER", "log"),
		WorkerNotifier: getEnv("WORKER_NOTIFIER", "log"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnvInt64("TELEGRAM_CHAT_ID", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendwatch"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_alerts"),

		WatchSchedule: getEnv("WATCH_SCHEDULE", "*/15 * * * *"),
		WatchUserID:   getEnv("WATCH_USER_ID", ""),
		WatchToken:    getEnv("WATCH_TOKEN", ""),

		SessionFile: getEnv("SESSION_FILE", ""),
	}

	return cfg
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Threshold returns DEFAULT_THRESHOLD as money, or core.DefaultThreshold when
// it does not parse.
func (c *Config) Threshold() core.Money {
	m, err := core.ParsePositiveAmount(c.DefaultThreshold)
	if err != nil {
		return core.DefaultThreshold
	}
	return m
}

// WatchEnabled reports whether scheduled checks are configured.
func (c *Config) WatchEnabled() bool {
	return c.WatchUserID != "" || c.WatchToken != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	// Validate remote API
	if parsedURL, err := url.Parse(c.APIBaseURL); err != nil || c.APIBaseURL == "" {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s'", c.APIBaseURL))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}
	if c.APITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at least 1 second", c.APITimeout))
	}

	// Validate reporting
	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if _, err := core.ParsePositiveAmount(c.DefaultThreshold); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default threshold '%s': must be a positive amount", c.DefaultThreshold))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	} else if c.CacheTTL > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 1 hour", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of [text json]", c.LogFormat))
	}

	// Validate state backend
	validBackends := []string{"memory", "sqlite"}
	if !oneOf(c.StateBackend, validBackends) {
		errors = append(errors, fmt.Sprintf("invalid state backend '%s': must be one of %v", c.StateBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.StateBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate notifiers
	validNotifiers := []string{"log", "email", "telegram", "queue"}
	if !oneOf(c.Notifier, validNotifiers) {
		errors = append(errors, fmt.Sprintf("invalid notifier '%s': must be one of %v", c.Notifier, validNotifiers))
	}
	validWorkerNotifiers := []string{"log", "email", "telegram"}
	if !oneOf(c.WorkerNotifier, validWorkerNotifiers) {
		errors = append(errors, fmt.Sprintf("invalid worker notifier '%s': must be one of %v", c.WorkerNotifier, validWorkerNotifiers))
	}

	if c.Notifier == "email" || c.WorkerNotifier == "email" {
		if c.SMTPHost == "" {
			errors = append(errors, "SMTP host is required when using the email notifier")
		}
		if c.SenderEmail == "" {
			errors = append(errors, "sender email is required when using the email notifier")
		}
		if c.SMTPPort < 1 || c.SMTPPort > 65535 {
			errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
		}
	}

	if c.Notifier == "telegram" || c.WorkerNotifier == "telegram" {
		if c.TelegramBotToken == "" {
			errors = append(errors, "Telegram bot token is required when using the telegram notifier")
		}
		if c.TelegramChatID == 0 {
			errors = append(errors, "Telegram chat ID is required when using the telegram notifier")
		}
	}

	if c.Notifier == "queue" && c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required when using the queue notifier")
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
	}

	// Validate AMQP exchange and queue names if AMQP is configured
	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate scheduled checks
	if c.WatchEnabled() {
		if c.WatchUserID == "" || c.WatchToken == "" {
			errors = append(errors, "both WATCH_USER_ID and WATCH_TOKEN are required for scheduled checks")
		}
		if _, err := cron.ParseStandard(c.WatchSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid watch schedule '%s': %v", c.WatchSchedule, err))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
