package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// messageSender is the part of tgbotapi.BotAPI used here.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts alerts to a Telegram chat.
type TelegramNotifier struct {
	bot    messageSender
	chatID int64
}

// NewTelegramNotifier authenticates the bot token and returns a notifier
// writing to chatID.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = false
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, Subject(a)+"\n\n"+Body(a))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	slog.InfoContext(ctx, "Alert sent to Telegram", "user_id", a.UserID, "chat_id", n.chatID)
	return nil
}
