package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spendwatch/internal/core"
)

var errMissingAmount = errors.New("missing amount")

// Batch is the result of listing transactions. Rejected holds records that
// failed validation and were left out of Transactions.
type Batch struct {
	Transactions []core.Transaction
	Rejected     []Rejected
}

// Rejected describes a quarantined record.
type Rejected struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

type wireTransaction struct {
	MongoID     string          `json:"_id"`
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      json.RawMessage `json:"amount"`
	Category    string          `json:"category"`
	Mode        string          `json:"mode"`
	Desc        string          `json:"desc"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	CreatedAt   string          `json:"createdAt"`
}

type draftBody struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Mode     string `json:"mode"`
	Type     string `json:"type"`
	Desc     string `json:"desc"`
}

type patchBody struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// ListTransactions fetches the caller's transactions. limit > 0 asks the
// server for the most recent limit records.
func (c *Client) ListTransactions(ctx context.Context, limit int) (Batch, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var raw []json.RawMessage
	err := c.do(ctx, request{method: http.MethodGet, path: "/expenses", query: q, auth: true}, &raw)
	if err != nil {
		return Batch{}, fmt.Errorf("list transactions: %w", err)
	}
	return DecodeTransactions(raw), nil
}

// CreateTransaction records a new transaction.
func (c *Client) CreateTransaction(ctx context.Context, d core.TransactionDraft) error {
	if err := d.Validate(); err != nil {
		return err
	}
	body := draftBody{
		Category: d.Category,
		Amount:   d.Amount.String(),
		Mode:     d.Mode,
		Type:     string(d.Type),
		Desc:     d.Description,
	}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/expenses", body: body, auth: true}, nil); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// UpdateTransaction changes the category and amount of a record.
func (c *Client) UpdateTransaction(ctx context.Context, id string, p core.TransactionPatch) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("update transaction: %w", ErrNotFound)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	body := patchBody{Category: p.Category, Amount: p.Amount.String()}
	path := "/expenses/" + url.PathEscape(id)
	if err := c.do(ctx, request{method: http.MethodPut, path: path, body: body, auth: true}, nil); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

// DeleteTransaction removes a record.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("delete transaction: %w", ErrNotFound)
	}
	path := "/expenses/" + url.PathEscape(id)
	if err := c.do(ctx, request{method: http.MethodDelete, path: path, auth: true}, nil); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// DecodeTransactions converts raw records one by one. A record that does
// not decode or validate is reported in Rejected and does not affect the
// others.
func DecodeTransactions(raw []json.RawMessage) Batch {
	b := Batch{
		Transactions: make([]core.Transaction, 0, len(raw)),
	}
	for i, r := range raw {
		tx, err := decodeTransaction(r)
		if err != nil {
			b.Rejected = append(b.Rejected, Rejected{Index: i, ID: tx.ID, Reason: err.Error()})
			continue
		}
		b.Transactions = append(b.Transactions, tx)
	}
	return b
}

func decodeTransaction(raw json.RawMessage) (core.Transaction, error) {
	var w wireTransaction
	if err := json.Unmarshal(raw, &w); err != nil {
		return core.Transaction{}, fmt.Errorf("decode record: %w", err)
	}

	tx := core.Transaction{
		ID:          firstNonEmpty(w.MongoID, w.ID),
		Category:    strings.TrimSpace(w.Category),
		Mode:        w.Mode,
		Description: firstNonEmpty(w.Desc, w.Description),
		Date:        parseDate(firstNonEmpty(w.Date, w.CreatedAt)),
	}

	t, err := core.ParseTransactionType(w.Type)
	if err != nil {
		return tx, err
	}
	tx.Type = t

	if len(w.Amount) == 0 || string(w.Amount) == "null" {
		return tx, errMissingAmount
	}
	var amount core.Money
	if err := json.Unmarshal(w.Amount, &amount); err != nil {
		return tx, fmt.Errorf("amount %s: %w", string(w.Amount), core.ErrInvalidAmount)
	}
	tx.Amount = amount

	if err := tx.Validate(); err != nil {
		return tx, err
	}
	return tx, nil
}

// parseDate returns the zero time when s is empty or unparseable.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
