package storage

import (
	"errors"
	"time"
)

// Dispatch statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

var ErrInvalidDispatch = errors.New("invalid dispatch record")

// AlertState is the last observed alert condition of a user. A user with no
// stored state is treated as not alerted.
type AlertState struct {
	UserID     string
	Alerted    bool
	Percentage float64
	UpdatedAt  time.Time
}

// Dispatch records one attempt to notify a user.
type Dispatch struct {
	ID                int64
	UserID            string
	Channel           string
	Recipient         string
	TotalExpenseCents int64
	ThresholdCents    int64
	Percentage        float64
	Status            string
	Error             string
	CreatedAt         time.Time
}

func (d Dispatch) Validate() error {
	if d.UserID == "" {
		return ErrInvalidDispatch
	}
	if d.Status != StatusSent && d.Status != StatusFailed {
		return ErrInvalidDispatch
	}
	return nil
}
