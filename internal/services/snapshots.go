package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"spendwatch/internal/api"
	"spendwatch/internal/cache"
	"spendwatch/internal/core"
)

// Remote is the part of the API client the services depend on.
type Remote interface {
	ListTransactions(ctx context.Context, limit int) (api.Batch, error)
	GetUser(ctx context.Context, id string) (core.User, error)
	CreateTransaction(ctx context.Context, d core.TransactionDraft) error
	UpdateTransaction(ctx context.Context, id string, p core.TransactionPatch) error
	DeleteTransaction(ctx context.Context, id string) error
	UpdateSettings(ctx context.Context, id string, s core.Settings) error
}

// RemoteFactory binds a Remote to a bearer token.
type RemoteFactory func(token string) Remote

// ClientFactory returns a RemoteFactory backed by c.
func ClientFactory(c *api.Client) RemoteFactory {
	return func(token string) Remote {
		return c.WithTokens(api.StaticToken(token))
	}
}

// Snapshot is the validated transaction list of one session at a point in
// time. It is never modified after creation.
type Snapshot struct {
	Transactions []core.Transaction
	Rejected     []api.Rejected
	FetchedAt    time.Time
}

// Snapshots fetches transaction lists and caches them per session.
type Snapshots struct {
	remote RemoteFactory
	cache  *cache.LRUCache[Snapshot]
}

// NewSnapshots returns a snapshot source. c may be nil to disable caching.
func NewSnapshots(remote RemoteFactory, c *cache.LRUCache[Snapshot]) *Snapshots {
	return &Snapshots{remote: remote, cache: c}
}

// Get returns the cached snapshot for token or fetches a fresh one.
func (s *Snapshots) Get(ctx context.Context, token string) (Snapshot, error) {
	key := SessionKey(token)
	var gen uint64
	if s.cache != nil {
		if snap, ok := s.cache.Get(key); ok {
			return snap, nil
		}
		gen = s.cache.Generation(key)
	}

	batch, err := s.remote(token).ListTransactions(ctx, 0)
	if err != nil {
		return Snapshot{}, err
	}
	if len(batch.Rejected) > 0 {
		slog.WarnContext(ctx, "Quarantined malformed transactions",
			"count", len(batch.Rejected),
			"first_reason", batch.Rejected[0].Reason)
	}

	snap := Snapshot{
		Transactions: batch.Transactions,
		Rejected:     batch.Rejected,
		FetchedAt:    time.Now(),
	}
	if s.cache != nil && !s.cache.SetIfCurrent(key, snap, gen) {
		slog.DebugContext(ctx, "Discarded snapshot invalidated during fetch")
	}
	return snap, nil
}

// Invalidate forgets the snapshot of token.
func (s *Snapshots) Invalidate(token string) {
	if s.cache != nil {
		s.cache.Invalidate(SessionKey(token))
	}
}

// SessionKey derives a stable, non-reversible key from a bearer token.
func SessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func wrapRemote(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
