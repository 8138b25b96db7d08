package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"
)

const (
	dialAttempts   = 5
	maxDialBackoff = 30 * time.Second
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

// NewClient dials the broker, retrying connection failures with exponential
// backoff, and declares the exchange and queue.
func NewClient(ctx context.Context, url, exchangeName, queueName string) (*Client, error) {
	var conn *amqp091.Connection
	dial := func() error {
		c, err := amqp091.Dial(url)
		if err != nil {
			if !isConnectionError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = maxDialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(b, dialAttempts-1), ctx)
	err := backoff.RetryNotify(dial, policy, func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "AMQP dial failed, retrying", "error", err, "wait", wait)
	})
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishAlert publishes a persistent alert message.
func (c *Client) PublishAlert(ctx context.Context, msg AlertMessage) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		c.queueName,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published alert message",
		"user_id", msg.UserID,
		"percentage", fmt.Sprintf("%.1f", msg.Percentage),
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// ConsumeAlerts delivers alert messages to handler until ctx is cancelled.
// Undecodable messages are dropped; handler failures are requeued.
func (c *Client) ConsumeAlerts(ctx context.Context, handler func(context.Context, *AlertMessage) error) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming alert messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			handleDelivery(ctx, delivery, handler)
		}
	}
}

// acknowledger is the subset of amqp091.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type delivery interface {
	acknowledger
	body() []byte
}

type amqpDelivery struct{ amqp091.Delivery }

func (d amqpDelivery) body() []byte { return d.Body }

func handleDelivery(ctx context.Context, d amqp091.Delivery, handler func(context.Context, *AlertMessage) error) {
	settle(ctx, amqpDelivery{d}, handler)
}

func settle(ctx context.Context, d delivery, handler func(context.Context, *AlertMessage) error) {
	msg, err := AlertMessageFromJSON(d.body())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle message", "error", err, "user_id", msg.UserID)
		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
	slog.InfoContext(ctx, "Processed alert message", "user_id", msg.UserID)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// isConnectionError reports whether err looks like a transient network
// failure worth retrying.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var amqpErr *amqp091.Error
	if errors.As(err, &amqpErr) {
		return amqpErr.Recover || amqpErr.Code == amqp091.ConnectionForced
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "connection closed", "eof", "broken pipe", "use of closed network connection", "i/o timeout"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
