package notify

import (
	"context"
	"time"

	"spendwatch/internal/amqp"
	"spendwatch/internal/core"
)

// Publisher is implemented by *amqp.Client.
type Publisher interface {
	PublishAlert(ctx context.Context, msg amqp.AlertMessage) error
}

// QueueNotifier hands alerts to the alert worker through the broker.
type QueueNotifier struct {
	pub Publisher
	now func() time.Time
}

func NewQueueNotifier(pub Publisher) *QueueNotifier {
	return &QueueNotifier{pub: pub, now: time.Now}
}

func (n *QueueNotifier) Notify(ctx context.Context, a Alert) error {
	return n.pub.PublishAlert(ctx, ToMessage(a, n.now()))
}

// ToMessage converts an alert to its queue representation.
func ToMessage(a Alert, at time.Time) amqp.AlertMessage {
	return amqp.AlertMessage{
		UserID:            a.UserID,
		RecipientName:     a.RecipientName,
		RecipientEmail:    a.RecipientEmail,
		TotalExpenseCents: a.TotalExpense.Cents,
		ThresholdCents:    a.Threshold.Cents,
		Percentage:        a.Percentage,
		Timestamp:         at,
	}
}

// FromMessage is the inverse of ToMessage.
func FromMessage(m *amqp.AlertMessage) Alert {
	return Alert{
		UserID:         m.UserID,
		RecipientName:  m.RecipientName,
		RecipientEmail: m.RecipientEmail,
		TotalExpense:   core.Money{Cents: m.TotalExpenseCents},
		Threshold:      core.Money{Cents: m.ThresholdCents},
		Percentage:     m.Percentage,
	}
}
