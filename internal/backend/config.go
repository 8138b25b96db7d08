package backend

import (
	"fmt"
	"strconv"

	"spendwatch/internal/config"
	"spendwatch/internal/notify"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.StateBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.StateBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		SMTP: notify.SMTPConfig{
			Host:     appConfig.SMTPHost,
			Port:     strconv.Itoa(appConfig.SMTPPort),
			Username: appConfig.SMTPUsername,
			Password: appConfig.SMTPPassword,
			From:     appConfig.SenderEmail,
		},

		TelegramBotToken: appConfig.TelegramBotToken,
		TelegramChatID:   appConfig.TelegramChatID,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	return nil
}

// validateNotifier checks the settings kind needs.
func (c Config) validateNotifier(kind NotifierKind) error {
	switch kind {
	case EmailNotifier:
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return fmt.Errorf("SMTP host and sender are required for the email notifier")
		}
	case TelegramNotifier:
		if c.TelegramBotToken == "" || c.TelegramChatID == 0 {
			return fmt.Errorf("bot token and chat ID are required for the telegram notifier")
		}
	case QueueNotifier:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP URL is required for the queue notifier")
		}
	case LogNotifier:
	default:
		return fmt.Errorf("invalid notifier: %s", kind)
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}
