package backend

import (
	"context"
	"fmt"
	"log/slog"

	"spendwatch/internal/amqp"
	"spendwatch/internal/notify"
	"spendwatch/internal/storage"
	"spendwatch/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger

	// newTelegram is replaced in tests to avoid contacting the bot API.
	newTelegram func(token string, chatID int64) (notify.Notifier, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		newTelegram: func(token string, chatID int64) (notify.Notifier, error) {
			return notify.NewTelegramNotifier(token, chatID)
		},
	}
}

// CreateStateStore implements Factory.CreateStateStore
func (f *DefaultFactory) CreateStateStore(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite alert store", "db_path", config.SQLiteDBPath)
		return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
	case MemoryBackend:
		store := memory.New()
		f.logger.InfoContext(ctx, "Initialized memory alert store")
		return &BackendResult{Store: store, Cleanup: store.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateNotifier implements Factory.CreateNotifier
func (f *DefaultFactory) CreateNotifier(ctx context.Context, config Config, kind NotifierKind) (*NotifierResult, error) {
	if err := config.validateNotifier(kind); err != nil {
		return nil, err
	}

	switch kind {
	case EmailNotifier:
		f.logger.InfoContext(ctx, "Using email notifier", "smtp_host", config.SMTP.Host)
		return &NotifierResult{Notifier: notify.NewEmailNotifier(config.SMTP), Channel: string(kind)}, nil

	case TelegramNotifier:
		n, err := f.newTelegram(config.TelegramBotToken, config.TelegramChatID)
		if err != nil {
			return nil, err
		}
		f.logger.InfoContext(ctx, "Using telegram notifier", "chat_id", config.TelegramChatID)
		return &NotifierResult{Notifier: n, Channel: string(kind)}, nil

	case QueueNotifier:
		client, err := amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		f.logger.InfoContext(ctx, "Using queue notifier",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return &NotifierResult{
			Notifier: notify.NewQueueNotifier(client),
			Channel:  string(kind),
			Cleanup:  client.Close,
		}, nil

	default:
		return &NotifierResult{Notifier: notify.NewLogNotifier(f.logger), Channel: string(LogNotifier)}, nil
	}
}
