// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents so that sums and differences are exact.
// Parsing goes through decimal arithmetic and rounds half-up to two places.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCents is the largest single amount accepted: 100 billion in major
// units. Sums of realistic batches stay far below the int64 range.
const MaxCents int64 = 1e13

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(MaxCents)
)

// ParseAmount converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Negative values are rejected; zero is
// accepted because stored records may carry it.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12,345") -> 1235
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// ParsePositiveAmount is ParseAmount for user input, where zero is invalid.
func ParsePositiveAmount(s string) (Money, error) {
	m, err := ParseAmount(s)
	if err != nil {
		return Money{}, err
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// MoneyFromFloat converts a JSON number. NaN and infinities are rejected.
func MoneyFromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > float64(MaxCents)/100 {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(decimal.NewFromFloat(f))
}

func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "1234.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Float returns the amount in major units as a float64 for display and
// percentage math. Use Cents for sums.
func (m Money) Float() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// Add saturates at the int64 limits instead of wrapping.
func (m Money) Add(o Money) Money {
	switch {
	case o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents < 0 && m.Cents < math.MinInt64-o.Cents:
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	if o.Cents == math.MinInt64 {
		return m.Add(Money{Cents: math.MaxInt64}).Add(Money{Cents: 1})
	}
	return m.Add(Money{Cents: -o.Cents})
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// MarshalJSON encodes the amount as a plain JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a numeric string, since the
// remote API echoes form input back as strings. null leaves m untouched.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
