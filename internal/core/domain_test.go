package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:       "t1",
		Type:     Expense,
		Amount:   Money{Cents: 100},
		Category: CategoryFood,
		Mode:     ModeCash,
		Date:     time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	undated := good
	undated.Date = time.Time{}
	if err := undated.Validate(); err != nil {
		t.Fatalf("zero date must be accepted, got %v", err)
	}

	zero := good
	zero.Amount = Money{}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount must be accepted on stored records, got %v", err)
	}

	cases := []struct {
		name string
		tx   Transaction
		want error
	}{
		{"bad type", Transaction{Type: "transfer", Amount: Money{Cents: 1}, Category: "Food"}, ErrInvalidType},
		{"negative amount", Transaction{Type: Income, Amount: Money{Cents: -1}, Category: "Food"}, ErrInvalidAmount},
		{"blank category", Transaction{Type: Expense, Amount: Money{Cents: 1}, Category: "  "}, ErrEmptyCategory},
	}
	for _, tc := range cases {
		if err := tc.tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestTransactionDraftValidate(t *testing.T) {
	good := TransactionDraft{Type: Expense, Amount: Money{Cents: 1}, Category: "Food", Mode: ModeUPI}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []TransactionDraft{
		{Type: "", Amount: Money{Cents: 1}, Category: "Food", Mode: ModeUPI},
		{Type: Expense, Amount: Money{Cents: 0}, Category: "Food", Mode: ModeUPI},
		{Type: Expense, Amount: Money{Cents: 1}, Category: "", Mode: ModeUPI},
		{Type: Expense, Amount: Money{Cents: 1}, Category: "Food", Mode: ""},
		{Type: Expense, Amount: Money{Cents: 1}, Category: "Food", Mode: ModeUPI, Description: strings.Repeat("x", 201)},
	}
	for i, d := range bads {
		if err := d.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseTransactionType(t *testing.T) {
	if tt, err := ParseTransactionType(" Income "); err != nil || tt != Income {
		t.Fatalf("expected income, got %q (err=%v)", tt, err)
	}
	if _, err := ParseTransactionType("refund"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	on := true
	limit := Money{Cents: 1000_00}
	zero := Money{}

	if err := (Settings{}).Validate(); !errors.Is(err, ErrEmptySettings) {
		t.Fatalf("expected ErrEmptySettings, got %v", err)
	}
	if err := (Settings{AlertEnabled: &on}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Settings{MaxThreshold: &limit}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Settings{MaxThreshold: &zero}).Validate(); !errors.Is(err, ErrInvalidThreshold) {
		t.Fatalf("expected ErrInvalidThreshold, got %v", err)
	}
}

func TestUserThresholdDefault(t *testing.T) {
	if got := (User{}).Threshold(); got != DefaultThreshold {
		t.Fatalf("expected default threshold, got %v", got)
	}
	custom := User{MaxThreshold: Money{Cents: 500_00}}
	if got := custom.Threshold(); got.Cents != 500_00 {
		t.Fatalf("expected 500.00, got %v", got)
	}
}

func TestParseTimeframe(t *testing.T) {
	cases := []struct {
		in   string
		want Timeframe
		ok   bool
	}{
		{"", Daily, true},
		{"daily", Daily, true},
		{"Monthly", Monthly, true},
		{" yearly ", Yearly, true},
		{"weekly", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTimeframe(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidTimeframe) {
			t.Fatalf("%q expected ErrInvalidTimeframe, got %v", tc.in, err)
		}
	}
}
