package core

import (
	"errors"
	"strings"
)

// Timeframe selects the window and bucket size of a spending series.
type Timeframe string

const (
	Daily   Timeframe = "daily"
	Monthly Timeframe = "monthly"
	Yearly  Timeframe = "yearly"
)

var ErrInvalidTimeframe = errors.New("invalid timeframe")

func (tf Timeframe) Valid() bool {
	switch tf {
	case Daily, Monthly, Yearly:
		return true
	}
	return false
}

// ParseTimeframe maps user input to a Timeframe. Empty input means Daily.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Daily, nil
	}
	tf := Timeframe(s)
	if !tf.Valid() {
		return "", ErrInvalidTimeframe
	}
	return tf, nil
}

// Timeframes lists the supported values.
func Timeframes() []Timeframe {
	return []Timeframe{Daily, Monthly, Yearly}
}
