package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"spendwatch/internal/core"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// bearerToken returns the token of the Authorization header, or "".
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// parseTimeframe reads ?timeframe=, defaulting to daily.
func parseTimeframe(q url.Values) (core.Timeframe, error) {
	tf, err := core.ParseTimeframe(q.Get("timeframe"))
	if err != nil {
		return "", fmt.Errorf("%w: timeframe must be one of daily, monthly, yearly", errBadRequest)
	}
	return tf, nil
}

// parseBoundedInt reads a non-negative integer parameter capped at max. A
// missing parameter yields def.
func parseBoundedInt(q url.Values, name string, def, max int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	if n > max {
		n = max
	}
	return n, nil
}

// decodeJSON reads a single JSON object from the body into v. Amount errors
// are passed through so they map to 422 like other validation failures.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, core.ErrInvalidAmount) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

type draftRequest struct {
	Type        string     `json:"type"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Mode        string     `json:"mode"`
	Description string     `json:"description"`
}

func (d draftRequest) draft() (core.TransactionDraft, error) {
	t, err := core.ParseTransactionType(d.Type)
	if err != nil {
		return core.TransactionDraft{}, err
	}
	out := core.TransactionDraft{
		Type:        t,
		Amount:      d.Amount,
		Category:    sanitizeInput(d.Category),
		Mode:        sanitizeInput(d.Mode),
		Description: sanitizeInput(d.Description),
	}
	return out, out.Validate()
}

type patchRequest struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
}

func (p patchRequest) patch() (core.TransactionPatch, error) {
	out := core.TransactionPatch{Category: sanitizeInput(p.Category), Amount: p.Amount}
	return out, out.Validate()
}

type settingsRequest struct {
	MaxThreshold *core.Money `json:"maxThreshold"`
	AlertEnabled *bool       `json:"alertEnabled"`
}

func (s settingsRequest) settings() (core.Settings, error) {
	out := core.Settings{MaxThreshold: s.MaxThreshold, AlertEnabled: s.AlertEnabled}
	return out, out.Validate()
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
