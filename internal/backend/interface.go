package backend

import (
	"context"

	"spendwatch/internal/alerting"
	"spendwatch/internal/notify"
	"spendwatch/internal/storage"
)

// StateStore is an alert ledger the binaries can ping and close.
type StateStore interface {
	alerting.StateStore
	ListDispatches(ctx context.Context, userID string, limit int) ([]storage.Dispatch, error)
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the state store and its cleanup function
type BackendResult struct {
	Store   StateStore
	Cleanup CleanupFunc
}

// NotifierResult is a built notifier together with the channel name stored
// in the dispatch history.
type NotifierResult struct {
	Notifier notify.Notifier
	Channel  string
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateStateStore(ctx context.Context, config Config) (*BackendResult, error)
	CreateNotifier(ctx context.Context, config Config, kind NotifierKind) (*NotifierResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP, used by the queue notifier
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	SMTP notify.SMTPConfig

	TelegramBotToken string
	TelegramChatID   int64
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// NotifierKind selects how alerts leave the process.
type NotifierKind string

const (
	LogNotifier      NotifierKind = "log"
	EmailNotifier    NotifierKind = "email"
	TelegramNotifier NotifierKind = "telegram"
	QueueNotifier    NotifierKind = "queue"
)

func (k NotifierKind) IsValid() bool {
	switch k {
	case LogNotifier, EmailNotifier, TelegramNotifier, QueueNotifier:
		return true
	default:
		return false
	}
}
