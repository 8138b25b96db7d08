package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists the alert ledger: the per-user alert state and
// the history of dispatched notifications.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// GetAlertState returns the stored state, or a zero state for unknown users.
func (r *SQLiteRepository) GetAlertState(ctx context.Context, userID string) (AlertState, error) {
	st := AlertState{UserID: userID}
	var alerted int64
	err := r.db.QueryRowContext(ctx,
		`SELECT alerted, percentage, updated_at FROM alert_state WHERE user_id = ?`, userID,
	).Scan(&alerted, &st.Percentage, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("get alert state: %w", err)
	}
	st.Alerted = alerted != 0
	return st, nil
}

// SetAlertState upserts the state of a user.
func (r *SQLiteRepository) SetAlertState(ctx context.Context, st AlertState) error {
	if st.UserID == "" {
		return fmt.Errorf("set alert state: empty user id")
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	st.UpdatedAt = st.UpdatedAt.UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_state (user_id, alerted, percentage, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			alerted = excluded.alerted,
			percentage = excluded.percentage,
			updated_at = excluded.updated_at`,
		st.UserID, boolToInt(st.Alerted), st.Percentage, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set alert state: %w", err)
	}
	return nil
}

// RecordDispatch appends a dispatch to the history and returns its ID.
func (r *SQLiteRepository) RecordDispatch(ctx context.Context, d Dispatch) (int64, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	d.CreatedAt = d.CreatedAt.UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_dispatches
			(user_id, channel, recipient, total_expense_cents, threshold_cents, percentage, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.UserID, d.Channel, d.Recipient, d.TotalExpenseCents, d.ThresholdCents, d.Percentage, d.Status, d.Error, d.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("record dispatch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record dispatch: %w", err)
	}

	slog.InfoContext(ctx, "Alert dispatch recorded",
		"id", id,
		"user_id", d.UserID,
		"status", d.Status,
		"channel", d.Channel)

	return id, nil
}

// ListDispatches returns the most recent dispatches for a user, newest
// first. limit <= 0 means 50.
func (r *SQLiteRepository) ListDispatches(ctx context.Context, userID string, limit int) ([]Dispatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, channel, recipient, total_expense_cents, threshold_cents, percentage, status, error, created_at
		FROM alert_dispatches
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list dispatches: %w", err)
	}
	defer rows.Close()

	out := make([]Dispatch, 0)
	for rows.Next() {
		var d Dispatch
		if err := rows.Scan(&d.ID, &d.UserID, &d.Channel, &d.Recipient, &d.TotalExpenseCents,
			&d.ThresholdCents, &d.Percentage, &d.Status, &d.Error, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dispatches: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
