package services

import (
	"context"
	"fmt"
	"log/slog"

	"spendwatch/internal/api"
	"spendwatch/internal/core"
	"spendwatch/internal/report"
)

// Listing is a filtered view of a snapshot.
type Listing struct {
	Transactions []core.Transaction `json:"transactions"`
	Rejected     int                `json:"rejected"`
	Total        int                `json:"total"`
}

// ListQuery filters a listing. Zero values mean no filter.
type ListQuery struct {
	Limit    int
	Category string
}

// LedgerService handles transaction mutations and keeps the snapshot cache
// consistent with them.
type LedgerService struct {
	snapshots *Snapshots
	remote    RemoteFactory
}

func NewLedgerService(snapshots *Snapshots, remote RemoteFactory) *LedgerService {
	return &LedgerService{snapshots: snapshots, remote: remote}
}

// List returns the caller's transactions, newest first.
func (s *LedgerService) List(ctx context.Context, token string, q ListQuery) (Listing, error) {
	snap, err := s.snapshots.Get(ctx, token)
	if err != nil {
		return Listing{}, wrapRemote("list transactions", err)
	}

	txs := snap.Transactions
	if q.Category != "" {
		txs = report.SearchByCategory(txs, q.Category)
	}
	return Listing{
		Transactions: report.Recent(txs, q.Limit),
		Rejected:     len(snap.Rejected),
		Total:        len(snap.Transactions),
	}, nil
}

// Create records a new transaction.
func (s *LedgerService) Create(ctx context.Context, token string, d core.TransactionDraft) error {
	if err := d.Validate(); err != nil {
		return err
	}
	defer s.snapshots.Invalidate(token)
	if err := s.remote(token).CreateTransaction(ctx, d); err != nil {
		return wrapRemote("create transaction", err)
	}
	slog.InfoContext(ctx, "Transaction created",
		"type", d.Type,
		"category", d.Category,
		"amount", d.Amount.String())
	return nil
}

// Update edits the category and amount of a transaction.
func (s *LedgerService) Update(ctx context.Context, token, id string, p core.TransactionPatch) error {
	if id == "" {
		return fmt.Errorf("update transaction: %w", api.ErrNotFound)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	defer s.snapshots.Invalidate(token)
	if err := s.remote(token).UpdateTransaction(ctx, id, p); err != nil {
		return wrapRemote("update transaction", err)
	}
	slog.InfoContext(ctx, "Transaction updated", "id", id)
	return nil
}

// Delete removes a transaction.
func (s *LedgerService) Delete(ctx context.Context, token, id string) error {
	if id == "" {
		return fmt.Errorf("delete transaction: %w", api.ErrNotFound)
	}
	defer s.snapshots.Invalidate(token)
	if err := s.remote(token).DeleteTransaction(ctx, id); err != nil {
		return wrapRemote("delete transaction", err)
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// UpdateSettings changes the alert preferences of a user.
func (s *LedgerService) UpdateSettings(ctx context.Context, token, userID string, st core.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if err := s.remote(token).UpdateSettings(ctx, userID, st); err != nil {
		return wrapRemote("update settings", err)
	}
	slog.InfoContext(ctx, "Alert settings updated", "user_id", userID)
	return nil
}
