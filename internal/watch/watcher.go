// Package watch runs periodic alert checks for a single account.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"spendwatch/internal/services"
)

// DefaultSchedule checks every fifteen minutes.
const DefaultSchedule = "*/15 * * * *"

var ErrAlreadyRunning = errors.New("watcher is already running")

// ReportBuilder is implemented by *services.ReportService.
type ReportBuilder interface {
	Build(ctx context.Context, req services.ReportRequest) (services.Report, error)
}

// Config identifies the watched account.
type Config struct {
	Schedule string
	UserID   string
	Token    string
	Timeout  time.Duration
}

// Watcher builds a report on a cron schedule so that alerts fire even when
// nobody opens the dashboard.
type Watcher struct {
	reports ReportBuilder
	config  Config

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	runs    int
}

func New(reports ReportBuilder, cfg Config) *Watcher {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	return &Watcher{reports: reports, config: cfg}
}

// Start schedules the checks. Runs that overlap a still running check are
// skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrAlreadyRunning
	}
	if w.config.UserID == "" || w.config.Token == "" {
		return fmt.Errorf("watcher needs a user id and a token")
	}

	logger := cronLogger{l: slog.Default().With("component", "watch")}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(w.config.Schedule, func() { w.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", w.config.Schedule, err)
	}
	c.Start()
	w.cron = c
	w.running = true

	slog.InfoContext(ctx, "Watcher started",
		"schedule", w.config.Schedule,
		"user_id", w.config.UserID)
	return nil
}

// Stop halts the schedule and waits for a running check to finish.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	done := w.cron.Stop()
	w.running = false
	w.mu.Unlock()

	select {
	case <-done.Done():
		slog.InfoContext(ctx, "Watcher stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Watcher stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the schedule is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Runs returns how many checks have completed.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// RunOnce performs a single check.
func (w *Watcher) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	rep, err := w.reports.Build(ctx, services.ReportRequest{
		Token:  w.config.Token,
		UserID: w.config.UserID,
	})

	w.mu.Lock()
	w.runs++
	w.mu.Unlock()

	if err != nil {
		slog.ErrorContext(ctx, "Scheduled alert check failed", "user_id", w.config.UserID, "error", err)
		return
	}
	slog.DebugContext(ctx, "Scheduled alert check completed",
		"user_id", w.config.UserID,
		"percentage", fmt.Sprintf("%.1f", rep.View.Alert.Percentage),
		"outcome", rep.AlertOutcome)
}

type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
