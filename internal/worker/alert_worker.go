package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendwatch/internal/amqp"
	"spendwatch/internal/notify"
	"spendwatch/internal/storage"
)

// Recorder stores the outcome of each delivery.
type Recorder interface {
	RecordDispatch(ctx context.Context, d storage.Dispatch) (int64, error)
}

// AlertWorker delivers alert messages taken off the queue.
type AlertWorker struct {
	notifier notify.Notifier
	recorder Recorder
	channel  string
	now      func() time.Time
}

// NewAlertWorker returns a worker that delivers through notifier. recorder
// may be nil when no delivery history is kept.
func NewAlertWorker(notifier notify.Notifier, recorder Recorder, channel string) *AlertWorker {
	return &AlertWorker{
		notifier: notifier,
		recorder: recorder,
		channel:  channel,
		now:      time.Now,
	}
}

// HandleAlertMessage delivers one alert. A failed delivery is recorded and
// logged but not returned, so the broker does not redeliver it. Only a
// cancelled context is returned, leaving the message on the queue.
func (w *AlertWorker) HandleAlertMessage(ctx context.Context, msg *amqp.AlertMessage) error {
	slog.InfoContext(ctx, "Processing alert message",
		"user_id", msg.UserID,
		"percentage", fmt.Sprintf("%.1f", msg.Percentage),
		"published_at", msg.Timestamp)

	sendErr := w.notifier.Notify(ctx, notify.FromMessage(msg))
	if sendErr != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	rec := storage.Dispatch{
		UserID:            msg.UserID,
		Channel:           w.channel,
		Recipient:         msg.RecipientEmail,
		TotalExpenseCents: msg.TotalExpenseCents,
		ThresholdCents:    msg.ThresholdCents,
		Percentage:        msg.Percentage,
		Status:            storage.StatusSent,
		CreatedAt:         w.now(),
	}
	if sendErr != nil {
		rec.Status = storage.StatusFailed
		rec.Error = sendErr.Error()
	}
	if w.recorder != nil {
		if _, err := w.recorder.RecordDispatch(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to record alert delivery",
				"user_id", msg.UserID, "error", err)
		}
	}

	if sendErr != nil {
		slog.ErrorContext(ctx, "Alert delivery failed",
			"user_id", msg.UserID,
			"channel", w.channel,
			"error", sendErr)
		return nil
	}

	slog.InfoContext(ctx, "Alert delivered",
		"user_id", msg.UserID,
		"channel", w.channel)
	return nil
}
