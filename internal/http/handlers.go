package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"spendwatch/internal/alerting"
	"spendwatch/internal/api"
	"spendwatch/internal/core"
	applog "spendwatch/internal/log"
	"spendwatch/internal/report"
	"spendwatch/internal/services"
)

const (
	defaultTopN  = 3
	maxTopN      = 20
	maxListLimit = 500
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	})
}

// handleReady pings every configured dependency.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any, len(s.checks)+1)

	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	counters := map[string]int64{
		"http_requests_total":             traceMetrics.TotalRequests,
		"http_server_errors_total":        traceMetrics.ServerErrors,
		"http_response_time_avg_us":       traceMetrics.AverageResponseTime,
		"rate_limit_hits_total":           rateLimitMetrics.TotalHits,
		"rate_limit_active_clients":       rateLimitMetrics.ClientCount,
		"suspicious_requests_total":       securityMetrics.SuspiciousRequests,
		"invalid_forwarded_address_total": securityMetrics.InvalidIPAttempts,
		"uptime_seconds":                  int64(time.Since(s.startedAt).Seconds()),
	}
	for reason, n := range securityMetrics.Reasons {
		counters["suspicious_requests_"+reason+"_total"] = n
	}
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, name := range names {
		fmt.Fprintf(w, "spendwatch_%s %d\n", name, counters[name])
	}
}

func (s *Server) buildReport(w http.ResponseWriter, r *http.Request, topN int) (services.Report, bool) {
	token := bearerToken(r)
	if token == "" {
		s.fail(w, r, fmt.Errorf("build report: %w", api.ErrNoToken), applog.OpReport)
		return services.Report{}, false
	}
	tf, err := parseTimeframe(r.URL.Query())
	if err != nil {
		s.fail(w, r, err, applog.OpReport)
		return services.Report{}, false
	}

	userID := mux.Vars(r)["userID"]
	rep, err := s.reports.Build(r.Context(), services.ReportRequest{
		Token:     token,
		UserID:    userID,
		Timeframe: tf,
		TopN:      topN,
	})
	if err != nil {
		s.fail(w, r, err, applog.OpReport)
		return services.Report{}, false
	}

	s.structured.LogReport(r.Context(), userID, string(tf), rep.View.Alert.Percentage, string(rep.AlertOutcome))
	return rep, true
}

// handleReport returns the full aggregate view.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	top, err := parseBoundedInt(r.URL.Query(), "top", defaultTopN, maxTopN)
	if err != nil {
		s.fail(w, r, err, applog.OpReport)
		return
	}
	rep, ok := s.buildReport(w, r, top)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type seriesResponse struct {
	Timeframe core.Timeframe `json:"timeframe"`
	Points    []report.Point `json:"points"`
	Empty     bool           `json:"empty"`
}

// handleSeries returns only the time series of the requested timeframe.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.buildReport(w, r, defaultTopN)
	if !ok {
		return
	}
	points := rep.View.Series
	if points == nil {
		points = []report.Point{}
	}
	writeJSON(w, http.StatusOK, seriesResponse{
		Timeframe: rep.View.Timeframe,
		Points:    points,
		Empty:     len(points) == 0,
	})
}

type alertResponse struct {
	Alert   report.AlertState `json:"alert"`
	Outcome alerting.Outcome  `json:"outcome,omitempty"`
	Error   string            `json:"dispatchError,omitempty"`
}

// handleAlert returns the threshold evaluation.
func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.buildReport(w, r, defaultTopN)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, alertResponse{
		Alert:   rep.View.Alert,
		Outcome: rep.AlertOutcome,
		Error:   rep.AlertError,
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, applog.OpSettings)
		return
	}
	st, err := req.settings()
	if err != nil {
		s.fail(w, r, err, applog.OpSettings)
		return
	}
	if err := s.ledger.UpdateSettings(r.Context(), bearerToken(r), mux.Vars(r)["userID"], st); err != nil {
		s.fail(w, r, err, applog.OpSettings)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseBoundedInt(q, "limit", 0, maxListLimit)
	if err != nil {
		s.fail(w, r, err, applog.OpList)
		return
	}
	listing, err := s.ledger.List(r.Context(), bearerToken(r), services.ListQuery{
		Limit:    limit,
		Category: strings.TrimSpace(q.Get("category")),
	})
	if err != nil {
		s.fail(w, r, err, applog.OpList)
		return
	}
	if listing.Transactions == nil {
		listing.Transactions = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, applog.OpCreate)
		return
	}
	d, err := req.draft()
	if err != nil {
		s.fail(w, r, err, applog.OpCreate)
		return
	}
	if err := s.ledger.Create(r.Context(), bearerToken(r), d); err != nil {
		s.fail(w, r, err, applog.OpCreate)
		return
	}
	s.structured.LogTransactionMutation(r.Context(), applog.OpCreate, "", string(d.Type), d.Category, d.Amount.Cents)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, applog.OpUpdate)
		return
	}
	p, err := req.patch()
	if err != nil {
		s.fail(w, r, err, applog.OpUpdate)
		return
	}
	id := mux.Vars(r)["id"]
	if err := s.ledger.Update(r.Context(), bearerToken(r), id, p); err != nil {
		s.fail(w, r, err, applog.OpUpdate)
		return
	}
	s.structured.LogTransactionMutation(r.Context(), applog.OpUpdate, id, "", p.Category, p.Amount.Cents)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.ledger.Delete(r.Context(), bearerToken(r), id); err != nil {
		s.fail(w, r, err, applog.OpDelete)
		return
	}
	s.structured.LogTransactionMutation(r.Context(), applog.OpDelete, id, "", "", 0)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// fail logs err and writes the mapped JSON error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	status, msg := statusFor(err)
	errType := applog.ErrorTypeInternal
	switch {
	case status == http.StatusUnauthorized:
		errType = applog.ErrorTypeAuth
	case status == http.StatusNotFound:
		errType = applog.ErrorTypeNotFound
	case status == http.StatusBadGateway:
		errType = applog.ErrorTypeUpstream
	case status < 500:
		errType = applog.ErrorTypeValidation
	}

	logger := applog.FromContext(r.Context())
	fields := applog.NewFields().
		WithOperation(op).
		WithError(err).
		WithErrorType(errType)
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}
	writeError(w, status, msg)
}
