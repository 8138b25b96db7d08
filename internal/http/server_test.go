package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spendwatch/internal/alerting"
	"spendwatch/internal/api"
	"spendwatch/internal/core"
	applog "spendwatch/internal/log"
	"spendwatch/internal/report"
	"spendwatch/internal/services"
)

type fakeReports struct {
	last services.ReportRequest
	rep  services.Report
	err  error
}

func (f *fakeReports) Build(_ context.Context, req services.ReportRequest) (services.Report, error) {
	f.last = req
	if f.err != nil {
		return services.Report{}, f.err
	}
	rep := f.rep
	rep.View.Timeframe = req.Timeframe
	return rep, nil
}

type fakeLedger struct {
	token    string
	query    services.ListQuery
	listing  services.Listing
	created  []core.TransactionDraft
	updated  map[string]core.TransactionPatch
	deleted  []string
	settings []core.Settings
	err      error
}

func (f *fakeLedger) List(_ context.Context, token string, q services.ListQuery) (services.Listing, error) {
	f.token, f.query = token, q
	return f.listing, f.err
}

func (f *fakeLedger) Create(_ context.Context, token string, d core.TransactionDraft) error {
	f.token = token
	f.created = append(f.created, d)
	return f.err
}

func (f *fakeLedger) Update(_ context.Context, token, id string, p core.TransactionPatch) error {
	f.token = token
	if f.updated == nil {
		f.updated = map[string]core.TransactionPatch{}
	}
	f.updated[id] = p
	return f.err
}

func (f *fakeLedger) Delete(_ context.Context, token, id string) error {
	f.token = token
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeLedger) UpdateSettings(_ context.Context, token, _ string, st core.Settings) error {
	f.token = token
	f.settings = append(f.settings, st)
	return f.err
}

type pingFunc func(context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

func newTestServer(t *testing.T, reports *fakeReports, ledger *fakeLedger, checks map[string]Pinger) *Server {
	t.Helper()
	logger := applog.NewText(io.Discard, slog.LevelDebug, applog.ComponentHTTP)
	srv := NewServer(Config{Addr: ":0", RateLimitRPM: 1000, Logger: logger, Checks: checks}, reports, ledger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Authorization", "Bearer tok-1")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %q", rr.Body.String())
	}
	return body.Error
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, &fakeReports{}, &fakeLedger{}, map[string]Pinger{
		"state_store": pingFunc(func(context.Context) error { return nil }),
	})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := do(srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	down := newTestServer(t, &fakeReports{}, &fakeLedger{}, map[string]Pinger{
		"state_store": pingFunc(func(context.Context) error { return errors.New("db locked") }),
	})
	rr := do(down, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when a check fails, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "db locked") {
		t.Errorf("expected failing check in body: %s", rr.Body.String())
	}
}

func TestReportRoutes(t *testing.T) {
	reports := &fakeReports{rep: services.Report{
		User: core.User{ID: "u1"},
		View: report.View{
			Totals: report.Totals{Expense: core.Money{Cents: 950_00}},
			Alert:  report.AlertState{Percentage: 95, ShouldAlert: true},
		},
		AlertOutcome: alerting.OutcomeSent,
	}}
	srv := newTestServer(t, reports, &fakeLedger{}, nil)

	rr := do(srv, http.MethodGet, "/api/users/u1/report?timeframe=Monthly&top=5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("report status=%d body=%s", rr.Code, rr.Body.String())
	}
	if reports.last.UserID != "u1" || reports.last.Token != "tok-1" || reports.last.Timeframe != core.Monthly || reports.last.TopN != 5 {
		t.Errorf("unexpected request %+v", reports.last)
	}
	if rr.Header().Get("X-Request-ID") == "" || rr.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("expected middleware headers, got %v", rr.Header())
	}

	rr = do(srv, http.MethodGet, "/api/users/u1/series?timeframe=yearly", "")
	var series seriesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &series); err != nil {
		t.Fatalf("series decode: %v", err)
	}
	if !series.Empty || series.Points == nil || series.Timeframe != core.Yearly {
		t.Errorf("expected empty yearly series, got %+v", series)
	}

	rr = do(srv, http.MethodGet, "/api/users/u1/alert", "")
	var alert alertResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &alert); err != nil {
		t.Fatalf("alert decode: %v", err)
	}
	if !alert.Alert.ShouldAlert || alert.Outcome != alerting.OutcomeSent {
		t.Errorf("unexpected alert %+v", alert)
	}
}

func TestReportRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, &fakeReports{}, &fakeLedger{}, nil)

	rr := do(srv, http.MethodGet, "/api/users/u1/report?timeframe=weekly", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad timeframe, got %d", rr.Code)
	}
	rr = do(srv, http.MethodGet, "/api/users/u1/report?top=-1", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad top, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/u1/report", nil)
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", fmt.Errorf("get user: %w", &api.StatusError{StatusCode: 401}), http.StatusUnauthorized},
		{"not found", &api.StatusError{StatusCode: 404}, http.StatusNotFound},
		{"upstream 500", &api.StatusError{StatusCode: 500, Message: "boom"}, http.StatusBadGateway},
		{"upstream 429", &api.StatusError{StatusCode: 429}, http.StatusTooManyRequests},
		{"upstream 400", &api.StatusError{StatusCode: 400, Message: "bad category"}, http.StatusUnprocessableEntity},
		{"validation", core.ErrInvalidThreshold, http.StatusUnprocessableEntity},
		{"deadline", context.DeadlineExceeded, http.StatusBadGateway},
		{"unknown", errors.New("???"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeReports{err: tt.err}, &fakeLedger{}, nil)
			rr := do(srv, http.MethodGet, "/api/users/u1/report", "")
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if decodeError(t, rr) == "" {
				t.Errorf("expected error message")
			}
		})
	}
}

func TestTransactionRoutes(t *testing.T) {
	ledger := &fakeLedger{listing: services.Listing{Total: 0}}
	srv := newTestServer(t, &fakeReports{}, ledger, nil)

	rr := do(srv, http.MethodGet, "/api/transactions?limit=10000&category=food", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	if ledger.query.Limit != maxListLimit || ledger.query.Category != "food" || ledger.token != "tok-1" {
		t.Errorf("unexpected query %+v token %q", ledger.query, ledger.token)
	}
	if !strings.Contains(rr.Body.String(), `"transactions":[]`) {
		t.Errorf("expected empty array, got %s", rr.Body.String())
	}

	rr = do(srv, http.MethodPost, "/api/transactions",
		`{"type":"Expense","amount":"12.50","category":" Food ","mode":"Cash","description":"lunch"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if len(ledger.created) != 1 || ledger.created[0].Amount.Cents != 1250 || ledger.created[0].Category != "Food" {
		t.Errorf("unexpected draft %+v", ledger.created)
	}

	rr = do(srv, http.MethodPut, "/api/transactions/abc", `{"category":"Bills","amount":30}`)
	if rr.Code != http.StatusOK || ledger.updated["abc"].Amount.Cents != 3000 {
		t.Fatalf("update status=%d patch=%+v", rr.Code, ledger.updated)
	}

	rr = do(srv, http.MethodDelete, "/api/transactions/abc", "")
	if rr.Code != http.StatusOK || len(ledger.deleted) != 1 {
		t.Fatalf("delete status=%d", rr.Code)
	}

	rr = do(srv, http.MethodPatch, "/api/transactions/abc", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestTransactionValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"type":`, http.StatusBadRequest},
		{"unknown field", `{"type":"expense","amount":1,"category":"Food","mode":"Cash","tip":1}`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"bad type", `{"type":"gift","amount":1,"category":"Food","mode":"Cash"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"type":"expense","amount":0,"category":"Food","mode":"Cash"}`, http.StatusUnprocessableEntity},
		{"bad amount", `{"type":"expense","amount":"abc","category":"Food","mode":"Cash"}`, http.StatusUnprocessableEntity},
		{"missing mode", `{"type":"expense","amount":1,"category":"Food"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{}
			srv := newTestServer(t, &fakeReports{}, ledger, nil)
			rr := do(srv, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
			if len(ledger.created) != 0 {
				t.Errorf("invalid draft reached the ledger")
			}
		})
	}
}

func TestSettingsRoute(t *testing.T) {
	ledger := &fakeLedger{}
	srv := newTestServer(t, &fakeReports{}, ledger, nil)

	rr := do(srv, http.MethodPut, "/api/users/u1/settings", `{"maxThreshold":2000,"alertEnabled":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("settings status=%d body=%s", rr.Code, rr.Body.String())
	}
	st := ledger.settings[0]
	if st.MaxThreshold == nil || st.MaxThreshold.Cents != 2000_00 || st.AlertEnabled == nil || *st.AlertEnabled {
		t.Errorf("unexpected settings %+v", st)
	}

	rr = do(srv, http.MethodPut, "/api/users/u1/settings", `{}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for empty settings, got %d", rr.Code)
	}
	rr = do(srv, http.MethodPut, "/api/users/u1/settings", `{"maxThreshold":-5}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for negative threshold, got %d", rr.Code)
	}
}

func TestRateLimitReturnsJSON(t *testing.T) {
	logger := applog.NewText(io.Discard, slog.LevelInfo, applog.ComponentHTTP)
	srv := NewServer(Config{RateLimitRPM: 1, Logger: logger}, &fakeReports{}, &fakeLedger{})
	defer srv.Shutdown(context.Background())

	do(srv, http.MethodGet, "/api/transactions", "")
	rr := do(srv, http.MethodGet, "/api/transactions", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if decodeError(t, rr) != "rate limit exceeded" || rr.Header().Get("Retry-After") == "" {
		t.Errorf("unexpected rejection %q %v", rr.Body.String(), rr.Header())
	}

	// Health endpoints are not limited
	if rr := do(srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Errorf("healthz status=%d", rr.Code)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	srv := newTestServer(t, &fakeReports{}, &fakeLedger{}, nil)
	rr := do(srv, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound || decodeError(t, rr) == "" {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Body.String())
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		if got := bearerToken(req); got != want {
			t.Errorf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"category":"x"} {"category":"y"}`))
	var p patchRequest
	if err := decodeJSON(req, &p); !errors.Is(err, errBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}
