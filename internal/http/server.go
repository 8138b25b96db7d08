// Package http exposes reports and transaction management as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"spendwatch/internal/core"
	applog "spendwatch/internal/log"
	"spendwatch/internal/middleware/ratelimit"
	"spendwatch/internal/middleware/security"
	"spendwatch/internal/middleware/trace"
	"spendwatch/internal/services"
)

// ReportBuilder produces a report for one user.
type ReportBuilder interface {
	Build(ctx context.Context, req services.ReportRequest) (services.Report, error)
}

// Ledger lists and mutates transactions on behalf of the caller.
type Ledger interface {
	List(ctx context.Context, token string, q services.ListQuery) (services.Listing, error)
	Create(ctx context.Context, token string, d core.TransactionDraft) error
	Update(ctx context.Context, token, id string, p core.TransactionPatch) error
	Delete(ctx context.Context, token, id string) error
	UpdateSettings(ctx context.Context, token, userID string, st core.Settings) error
}

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the server settings.
type Config struct {
	Addr         string
	RateLimitRPM int
	Logger       *applog.Logger
	// Checks are run by /readyz, keyed by name.
	Checks map[string]Pinger
}

type Server struct {
	http.Server

	reports ReportBuilder
	ledger  Ledger
	checks  map[string]Pinger

	logger           *applog.Logger
	structured       *applog.StructuredLogger
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	startedAt        time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, reports ReportBuilder, ledger Ledger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		reports:          reports,
		ledger:           ledger,
		checks:           cfg.Checks,
		logger:           logger,
		structured:       applog.NewStructuredLogger(logger),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger),
		startedAt:        time.Now(),
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Use(
		s.traceMiddleware.Middleware,
		applog.Middleware(s.logger, trace.FromRequest),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.securityDetector.Middleware,
	)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimiter.Middleware(s.rateLimitKey, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	}))

	api.HandleFunc("/users/{userID}/report", s.handleReport).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/series", s.handleSeries).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/alert", s.handleAlert).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/settings", s.handleSettings).Methods(http.MethodPut)

	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	return r
}

// rateLimitKey limits per session when a token is present and per client
// address otherwise.
func (s *Server) rateLimitKey(r *http.Request) string {
	if tok := bearerToken(r); tok != "" {
		return "tok:" + services.SessionKey(tok)
	}
	return "ip:" + s.securityDetector.ExtractClientIP(r)
}

// Shutdown stops the rate limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
