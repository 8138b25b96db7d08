// Package memory is an in-process alert ledger for development and tests.
// State is lost on restart, so a restart re-arms every alert.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"spendwatch/internal/storage"
)

type Store struct {
	mu         sync.Mutex
	states     map[string]storage.AlertState
	dispatches []storage.Dispatch
	now        func() time.Time
}

func New() *Store {
	return &Store{
		states: make(map[string]storage.AlertState),
		now:    time.Now,
	}
}

func (s *Store) GetAlertState(_ context.Context, userID string) (storage.AlertState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	if !ok {
		return storage.AlertState{UserID: userID}, nil
	}
	return st, nil
}

func (s *Store) SetAlertState(_ context.Context, st storage.AlertState) error {
	if st.UserID == "" {
		return fmt.Errorf("set alert state: empty user id")
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.UserID] = st
	return nil
}

// RecordDispatch stores the dispatch and returns a sequential ID.
func (s *Store) RecordDispatch(_ context.Context, d storage.Dispatch) (int64, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = int64(len(s.dispatches) + 1)
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	s.dispatches = append(s.dispatches, d)
	return d.ID, nil
}

func (s *Store) ListDispatches(_ context.Context, userID string, limit int) ([]storage.Dispatch, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	out := make([]storage.Dispatch, 0)
	for _, d := range s.dispatches {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
