// Package api is a typed client for the expense-tracker REST service.
//
// Every call carries the bearer token obtained from an explicit TokenSource.
// Records that cannot be validated are quarantined at decode time and never
// reach the aggregator.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultBaseURL is the hosted backend.
const DefaultBaseURL = "https://expense-tracker-backend-k1kb.onrender.com/api"

const maxErrorBody = 64 << 10

var (
	ErrNoToken      = errors.New("no session token")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// TokenSource supplies the bearer token attached to requests.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource holding a fixed token.
type StaticToken string

func (s StaticToken) Token() (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Is lets callers match ErrUnauthorized and ErrNotFound with errors.Is.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client talks to the remote API.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokens        TokenSource
	maxRetries    uint64
	retryInterval time.Duration
	logger        *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetry sets how many times idempotent reads are retried and the
// initial backoff interval.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryInterval = initial
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for baseURL. tokens may be nil for clients that
// only register or log in.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		tokens:        tokens,
		maxRetries:    2,
		retryInterval: 500 * time.Millisecond,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokens returns a shallow copy of c using a different token source.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	cp := *c
	cp.tokens = tokens
	return &cp
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	auth   bool
}

// do executes req and decodes a JSON response into out when non-nil.
// GET requests are retried on transient failures; writes are not.
func (c *Client) do(ctx context.Context, req request, out any) error {
	var payload []byte
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = b
	}

	var token string
	if req.auth {
		if c.tokens == nil {
			return ErrNoToken
		}
		t, err := c.tokens.Token()
		if err != nil {
			return err
		}
		token = t
	}

	attempt := func() error {
		err := c.send(ctx, req, payload, token, out)
		if err == nil {
			return nil
		}
		if req.method != http.MethodGet || !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	return backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		c.logger.WarnContext(ctx, "Retrying API request",
			"method", req.method, "path", req.path, "error", err, "wait", wait)
	})
}

func (c *Client) send(ctx context.Context, req request, payload []byte, token string, out any) error {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API request completed",
		"method", req.method,
		"path", req.path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     req.method,
			Path:       req.path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.method, req.path, err)
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// errorMessage extracts {"message": "..."} from an error body, falling back
// to the raw text.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
