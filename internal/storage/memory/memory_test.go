package memory

import (
	"context"
	"testing"
	"time"

	"spendwatch/internal/storage"
)

func TestMemoryStoreAlertState(t *testing.T) {
	s := New()
	ctx := context.Background()

	st, err := s.GetAlertState(ctx, "u1")
	if err != nil || st.Alerted {
		t.Fatalf("unexpected initial state %+v err=%v", st, err)
	}
	if err := s.SetAlertState(ctx, storage.AlertState{UserID: "u1", Alerted: true}); err != nil {
		t.Fatalf("SetAlertState() error = %v", err)
	}
	st, _ = s.GetAlertState(ctx, "u1")
	if !st.Alerted || st.UpdatedAt.IsZero() {
		t.Fatalf("unexpected state %+v", st)
	}
	if err := s.SetAlertState(ctx, storage.AlertState{}); err == nil {
		t.Fatalf("expected error for empty user id")
	}
}

func TestMemoryStoreDispatches(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		id, err := s.RecordDispatch(ctx, storage.Dispatch{UserID: "u1", Status: storage.StatusSent, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil || id != int64(i+1) {
			t.Fatalf("unexpected record: id=%d err=%v", id, err)
		}
	}
	if _, err := s.RecordDispatch(ctx, storage.Dispatch{UserID: "u1"}); err == nil {
		t.Fatalf("expected validation error")
	}

	got, _ := s.ListDispatches(ctx, "u1", 2)
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 2 {
		t.Fatalf("unexpected dispatches %+v", got)
	}
	none, _ := s.ListDispatches(ctx, "nobody", 0)
	if len(none) != 0 {
		t.Fatalf("expected no dispatches, got %d", len(none))
	}
}
