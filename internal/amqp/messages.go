package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// AlertMessage asks the alert worker to notify a user that their spending
// crossed the alert percentage. Amounts are in cents.
type AlertMessage struct {
	UserID            string    `json:"userId"`
	RecipientName     string    `json:"recipientName"`
	RecipientEmail    string    `json:"recipientEmail"`
	TotalExpenseCents int64     `json:"totalExpenseCents"`
	ThresholdCents    int64     `json:"thresholdCents"`
	Percentage        float64   `json:"percentage"`
	Timestamp         time.Time `json:"timestamp"`
}

var ErrInvalidMessage = errors.New("invalid alert message")

// ToJSON converts the message to JSON bytes
func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AlertMessageFromJSON decodes and validates a message body.
func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.ThresholdCents <= 0 {
		return nil, ErrInvalidMessage
	}
	return &msg, nil
}
