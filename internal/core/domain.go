package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Expense categories offered when recording a transaction.
const (
	CategoryFood       = "Food"
	CategoryBills      = "Bills"
	CategoryTransport  = "Transport"
	CategoryHealthcare = "Healthcare"
	CategoryPersonal   = "Personal"
	CategoryOther      = "Other"
)

// Payment modes offered when recording a transaction.
const (
	ModeCash         = "Cash"
	ModeCreditCard   = "Credit Card"
	ModeDebitCard    = "Debit Card"
	ModeUPI          = "UPI"
	ModeBankTransfer = "Bank Transfer"
)

const maxDescriptionLength = 200

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record as owned by the
	// remote API. Date may be zero when the server omitted it.
	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Category    string          `json:"category"`
		Mode        string          `json:"mode,omitempty"`
		Description string          `json:"description,omitempty"`
		Date        time.Time       `json:"date"`
	}

	// TransactionDraft carries the fields a user submits when recording a
	// new transaction. The server assigns ID and Date.
	TransactionDraft struct {
		Type        TransactionType
		Amount      Money
		Category    string
		Mode        string
		Description string
	}

	// TransactionPatch carries the editable fields of an existing record.
	TransactionPatch struct {
		Category string
		Amount   Money
	}

	User struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Email        string `json:"email"`
		MaxThreshold Money  `json:"maxThreshold"`
		AlertEnabled bool   `json:"alertEnabled"`
	}

	// Settings is a partial update of the user's alert preferences.
	// Nil fields are left untouched.
	Settings struct {
		MaxThreshold *Money
		AlertEnabled *bool
	}
)

// DefaultThreshold is the spending limit used until the user sets one.
var DefaultThreshold = Money{Cents: 15000_00}

var (
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyMode        = errors.New("empty payment mode")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrInvalidThreshold = errors.New("threshold must be greater than zero")
	ErrEmptySettings    = errors.New("no settings to update")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType accepts the type case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// ExpenseCategories returns the category set in display order.
func ExpenseCategories() []string {
	return []string{CategoryFood, CategoryBills, CategoryTransport, CategoryHealthcare, CategoryPersonal, CategoryOther}
}

// PaymentModes returns the suggested payment channels in display order.
func PaymentModes() []string {
	return []string{ModeCash, ModeCreditCard, ModeDebitCard, ModeUPI, ModeBankTransfer}
}

// IsExpense reports whether the transaction counts towards spending.
func (t Transaction) IsExpense() bool {
	return t.Type == Expense
}

// Validate checks the fields the aggregator relies on. A zero date is
// allowed; such records are left out of time series only.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (d TransactionDraft) Validate() error {
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(d.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(d.Mode) == "" {
		return ErrEmptyMode
	}
	if len(d.Description) > maxDescriptionLength {
		return ErrDescriptionLong
	}
	return nil
}

func (p TransactionPatch) Validate() error {
	if strings.TrimSpace(p.Category) == "" {
		return ErrEmptyCategory
	}
	return p.Amount.Validate()
}

// Validate rejects non-positive amounts.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateThreshold rejects limits that would make percentages meaningless.
func ValidateThreshold(m Money) error {
	if m.Cents <= 0 {
		return ErrInvalidThreshold
	}
	return nil
}

func (s Settings) Validate() error {
	if s.MaxThreshold == nil && s.AlertEnabled == nil {
		return ErrEmptySettings
	}
	if s.MaxThreshold != nil {
		return ValidateThreshold(*s.MaxThreshold)
	}
	return nil
}

// Threshold returns the user's limit, falling back to DefaultThreshold when
// none has been configured.
func (u User) Threshold() Money {
	if u.MaxThreshold.Cents <= 0 {
		return DefaultThreshold
	}
	return u.MaxThreshold
}
