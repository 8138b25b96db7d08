// Package notify delivers spending alerts to users.
//
// Notifiers never retry on their own: a failed delivery is returned to the
// caller, which decides what to record.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"spendwatch/internal/core"
	"spendwatch/internal/report"
)

var ErrNoRecipient = errors.New("alert has no recipient")

// Alert is the message sent when spending crosses the alert percentage.
type Alert struct {
	UserID         string
	RecipientName  string
	RecipientEmail string
	TotalExpense   core.Money
	Threshold      core.Money
	Percentage     float64
}

// NewAlert builds the alert for a user from an evaluated state.
func NewAlert(u core.User, st report.AlertState) Alert {
	return Alert{
		UserID:         u.ID,
		RecipientName:  u.Name,
		RecipientEmail: u.Email,
		TotalExpense:   st.TotalExpense,
		Threshold:      st.Threshold,
		Percentage:     st.Percentage,
	}
}

// Notifier delivers an alert over some channel.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, a Alert) error

func (f NotifierFunc) Notify(ctx context.Context, a Alert) error {
	return f(ctx, a)
}

// Subject is the one-line summary used by every channel.
func Subject(a Alert) string {
	return fmt.Sprintf("Expense alert: %.1f%% of your limit used", a.Percentage)
}

// Body renders the alert as plain text.
func Body(a Alert) string {
	name := strings.TrimSpace(a.RecipientName)
	if name == "" {
		name = "there"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "You have spent %s of your %s limit (%.1f%%).\n", a.TotalExpense, a.Threshold, a.Percentage)
	b.WriteString("Review your recent expenses to stay within budget.\n")
	return b.String()
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, a Alert) error {
	n.logger.WarnContext(ctx, "Spending alert",
		"user_id", a.UserID,
		"recipient", a.RecipientEmail,
		"total_expense", a.TotalExpense.String(),
		"threshold", a.Threshold.String(),
		"percentage", fmt.Sprintf("%.1f", a.Percentage),
	)
	return nil
}

// Multi fans an alert out to several notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
