package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spendwatch/internal/alerting"
	"spendwatch/internal/api"
	"spendwatch/internal/cache"
	"spendwatch/internal/core"
	"spendwatch/internal/report"
)

type fakeRemote struct {
	mu       sync.Mutex
	user     core.User
	batch    api.Batch
	listErr  error
	lists    int
	created  []core.TransactionDraft
	deleted  []string
	settings []core.Settings
}

func (f *fakeRemote) ListTransactions(_ context.Context, _ int) (api.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return f.batch, f.listErr
}

func (f *fakeRemote) GetUser(_ context.Context, id string) (core.User, error) {
	u := f.user
	u.ID = id
	return u, nil
}

func (f *fakeRemote) CreateTransaction(_ context.Context, d core.TransactionDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, d)
	return nil
}

func (f *fakeRemote) UpdateTransaction(_ context.Context, _ string, _ core.TransactionPatch) error {
	return nil
}

func (f *fakeRemote) DeleteTransaction(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRemote) UpdateSettings(_ context.Context, _ string, s core.Settings) error {
	f.settings = append(f.settings, s)
	return nil
}

type fakeObserver struct {
	states  []report.AlertState
	outcome alerting.Outcome
	err     error
}

func (o *fakeObserver) Observe(_ context.Context, _ core.User, st report.AlertState) (alerting.Outcome, error) {
	o.states = append(o.states, st)
	return o.outcome, o.err
}

func newFixture(remote *fakeRemote) (*Snapshots, RemoteFactory) {
	factory := func(string) Remote { return remote }
	return NewSnapshots(factory, cache.NewLRUCache[Snapshot](10, time.Minute)), factory
}

func tx(id, cat string, cents int64, at time.Time) core.Transaction {
	return core.Transaction{ID: id, Type: core.Expense, Category: cat, Amount: core.Money{Cents: cents}, Mode: core.ModeCash, Date: at}
}

func TestSnapshotsAreCachedPerToken(t *testing.T) {
	remote := &fakeRemote{}
	snaps, _ := newFixture(remote)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := snaps.Get(ctx, "tok-a"); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	if _, err := snaps.Get(ctx, "tok-b"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if remote.lists != 2 {
		t.Fatalf("expected 2 remote fetches, got %d", remote.lists)
	}

	snaps.Invalidate("tok-a")
	if _, err := snaps.Get(ctx, "tok-a"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if remote.lists != 3 {
		t.Fatalf("expected refetch after invalidation, got %d fetches", remote.lists)
	}
}

func TestSnapshotsDoNotCacheErrors(t *testing.T) {
	remote := &fakeRemote{listErr: api.ErrUnauthorized}
	snaps, _ := newFixture(remote)

	if _, err := snaps.Get(context.Background(), "tok"); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	remote.listErr = nil
	if _, err := snaps.Get(context.Background(), "tok"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if remote.lists != 2 {
		t.Fatalf("expected 2 fetches, got %d", remote.lists)
	}
}

func TestReportServiceBuild(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	remote := &fakeRemote{
		user: core.User{Name: "Asha", MaxThreshold: core.Money{Cents: 1000_00}, AlertEnabled: true},
		batch: api.Batch{
			Transactions: []core.Transaction{
				tx("1", core.CategoryFood, 600_00, now.Add(-time.Hour)),
				tx("2", core.CategoryBills, 350_00, now.Add(-2*time.Hour)),
			},
			Rejected: []api.Rejected{{Index: 2, Reason: "missing amount"}},
		},
	}
	snaps, factory := newFixture(remote)
	obs := &fakeObserver{outcome: alerting.OutcomeSent}
	svc := NewReportService(snaps, factory, obs, time.UTC)
	svc.now = func() time.Time { return now }

	rep, err := svc.Build(context.Background(), ReportRequest{Token: "tok", UserID: "u1", Timeframe: core.Daily})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if rep.User.ID != "u1" || rep.View.Totals.Expense.Cents != 950_00 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if !rep.View.Alert.ShouldAlert || rep.View.Alert.Percentage != 95 {
		t.Errorf("expected alert at 95%%, got %+v", rep.View.Alert)
	}
	if len(rep.Rejected) != 1 {
		t.Errorf("expected 1 rejected record, got %d", len(rep.Rejected))
	}
	if len(obs.states) != 1 || rep.AlertOutcome != alerting.OutcomeSent {
		t.Errorf("expected observer to be called once, got %d (%s)", len(obs.states), rep.AlertOutcome)
	}
	if len(rep.View.Series) != 2 {
		t.Errorf("expected 2 series points, got %d", len(rep.View.Series))
	}
}

func TestReportServiceKeepsReportOnDispatchFailure(t *testing.T) {
	remote := &fakeRemote{user: core.User{AlertEnabled: true}}
	snaps, factory := newFixture(remote)
	obs := &fakeObserver{
		outcome: alerting.OutcomeFailed,
		err:     errors.Join(alerting.ErrDispatchFailed, errors.New("smtp down")),
	}
	svc := NewReportService(snaps, factory, obs, time.UTC)

	rep, err := svc.Build(context.Background(), ReportRequest{Token: "tok", UserID: "u1"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if rep.AlertOutcome != alerting.OutcomeFailed || rep.AlertError == "" {
		t.Fatalf("expected failed dispatch to be reported, got %+v", rep)
	}
}

func TestReportServiceRequiresUser(t *testing.T) {
	snaps, factory := newFixture(&fakeRemote{})
	svc := NewReportService(snaps, factory, nil, nil)
	if _, err := svc.Build(context.Background(), ReportRequest{Token: "tok"}); err == nil {
		t.Fatalf("expected error for missing user id")
	}
}

func TestLedgerServiceMutationsInvalidate(t *testing.T) {
	remote := &fakeRemote{}
	snaps, factory := newFixture(remote)
	svc := NewLedgerService(snaps, factory)
	ctx := context.Background()

	if _, err := svc.List(ctx, "tok", ListQuery{}); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	draft := core.TransactionDraft{Type: core.Expense, Amount: core.Money{Cents: 500}, Category: core.CategoryFood, Mode: core.ModeCash}
	if err := svc.Create(ctx, "tok", draft); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.List(ctx, "tok", ListQuery{}); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if err := svc.Delete(ctx, "tok", "abc"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.List(ctx, "tok", ListQuery{}); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if remote.lists != 3 {
		t.Fatalf("expected a refetch after each mutation, got %d fetches", remote.lists)
	}
	if len(remote.created) != 1 || len(remote.deleted) != 1 {
		t.Errorf("unexpected mutations: %d created, %d deleted", len(remote.created), len(remote.deleted))
	}
}

func TestLedgerServiceRejectsInvalidInput(t *testing.T) {
	remote := &fakeRemote{}
	snaps, factory := newFixture(remote)
	svc := NewLedgerService(snaps, factory)
	ctx := context.Background()

	if err := svc.Create(ctx, "tok", core.TransactionDraft{Type: core.Expense}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected invalid amount, got %v", err)
	}
	if err := svc.Update(ctx, "tok", "", core.TransactionPatch{}); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("expected not found for empty id, got %v", err)
	}
	zero := core.Money{}
	if err := svc.UpdateSettings(ctx, "tok", "u1", core.Settings{MaxThreshold: &zero}); !errors.Is(err, core.ErrInvalidThreshold) {
		t.Errorf("expected invalid threshold, got %v", err)
	}
	if len(remote.created) != 0 || len(remote.settings) != 0 {
		t.Errorf("invalid input reached the remote")
	}
}

func TestLedgerServiceListFilters(t *testing.T) {
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	remote := &fakeRemote{batch: api.Batch{Transactions: []core.Transaction{
		tx("1", core.CategoryFood, 100, base),
		tx("2", core.CategoryBills, 200, base.Add(time.Hour)),
		tx("3", core.CategoryFood, 300, base.Add(2*time.Hour)),
	}}}
	snaps, factory := newFixture(remote)
	svc := NewLedgerService(snaps, factory)

	got, err := svc.List(context.Background(), "tok", ListQuery{Limit: 1, Category: "food"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got.Transactions) != 1 || got.Transactions[0].ID != "3" {
		t.Fatalf("expected newest food record, got %+v", got.Transactions)
	}
	if got.Total != 3 {
		t.Errorf("expected total 3, got %d", got.Total)
	}
}
