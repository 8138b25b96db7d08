// Package alerting turns evaluated alert states into notifications.
//
// A notification is sent only when a user's alert condition goes from false
// to true. While it stays true nothing more is sent; once it drops back the
// alert is re-armed.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spendwatch/internal/core"
	"spendwatch/internal/notify"
	"spendwatch/internal/report"
	"spendwatch/internal/storage"
)

var ErrDispatchFailed = errors.New("alert dispatch failed")

// StateStore persists the last alert condition per user and the dispatch
// history.
type StateStore interface {
	GetAlertState(ctx context.Context, userID string) (storage.AlertState, error)
	SetAlertState(ctx context.Context, st storage.AlertState) error
	RecordDispatch(ctx context.Context, d storage.Dispatch) (int64, error)
}

// Outcome describes what Observe did.
type Outcome string

const (
	OutcomeNone    Outcome = "none"
	OutcomeHeld    Outcome = "held"
	OutcomeRearmed Outcome = "rearmed"
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
)

type Dispatcher struct {
	store    StateStore
	notifier notify.Notifier
	channel  string
	now      func() time.Time

	mu sync.Mutex
}

// NewDispatcher returns a dispatcher sending through notifier. channel names
// the notifier in the dispatch history.
func NewDispatcher(store StateStore, notifier notify.Notifier, channel string) *Dispatcher {
	return &Dispatcher{
		store:    store,
		notifier: notifier,
		channel:  channel,
		now:      time.Now,
	}
}

// Observe compares st with the stored state of u and notifies on a rising
// edge. A failed notification is recorded and returned wrapped in
// ErrDispatchFailed; it is not retried, and the user stays marked as
// alerted until the condition clears.
func (d *Dispatcher) Observe(ctx context.Context, u core.User, st report.AlertState) (Outcome, error) {
	if u.ID == "" {
		return OutcomeNone, fmt.Errorf("observe alert: empty user id")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	prev, err := d.store.GetAlertState(ctx, u.ID)
	if err != nil {
		return OutcomeNone, fmt.Errorf("load alert state: %w", err)
	}

	now := d.now()
	switch {
	case !st.ShouldAlert && !prev.Alerted:
		return OutcomeNone, nil
	case !st.ShouldAlert && prev.Alerted:
		if err := d.store.SetAlertState(ctx, storage.AlertState{UserID: u.ID, Alerted: false, Percentage: st.Percentage, UpdatedAt: now}); err != nil {
			return OutcomeNone, fmt.Errorf("rearm alert: %w", err)
		}
		slog.InfoContext(ctx, "Alert re-armed", "user_id", u.ID, "percentage", fmt.Sprintf("%.1f", st.Percentage))
		return OutcomeRearmed, nil
	case st.ShouldAlert && prev.Alerted:
		return OutcomeHeld, nil
	}

	if err := d.store.SetAlertState(ctx, storage.AlertState{UserID: u.ID, Alerted: true, Percentage: st.Percentage, UpdatedAt: now}); err != nil {
		return OutcomeNone, fmt.Errorf("mark alerted: %w", err)
	}

	alert := notify.NewAlert(u, st)
	sendErr := d.notifier.Notify(ctx, alert)

	rec := storage.Dispatch{
		UserID:            u.ID,
		Channel:           d.channel,
		Recipient:         u.Email,
		TotalExpenseCents: st.TotalExpense.Cents,
		ThresholdCents:    st.Threshold.Cents,
		Percentage:        st.Percentage,
		Status:            storage.StatusSent,
		CreatedAt:         now,
	}
	if sendErr != nil {
		rec.Status = storage.StatusFailed
		rec.Error = sendErr.Error()
	}
	if _, err := d.store.RecordDispatch(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "Failed to record alert dispatch", "user_id", u.ID, "error", err)
	}

	if sendErr != nil {
		slog.ErrorContext(ctx, "Alert notification failed", "user_id", u.ID, "channel", d.channel, "error", sendErr)
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrDispatchFailed, sendErr)
	}

	slog.InfoContext(ctx, "Alert notification sent",
		"user_id", u.ID,
		"channel", d.channel,
		"percentage", fmt.Sprintf("%.1f", st.Percentage))
	return OutcomeSent, nil
}
