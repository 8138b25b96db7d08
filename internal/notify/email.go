package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
)

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// defaultSendTimeout bounds a send when the caller's context has no deadline.
const defaultSendTimeout = 30 * time.Second

// EmailNotifier sends alerts over SMTP.
type EmailNotifier struct {
	cfg  SMTPConfig
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	return &EmailNotifier{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, a Alert) error {
	if a.RecipientEmail == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = []string{a.RecipientEmail}
	e.Subject = Subject(a)
	e.Text = []byte(Body(a))

	addr := fmt.Sprintf("%s:%s", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	if err := n.sendContext(ctx, e, addr, auth); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}

	slog.InfoContext(ctx, "Alert email sent", "user_id", a.UserID, "recipient", a.RecipientEmail)
	return nil
}

// sendContext returns when the send finishes or ctx is done, whichever comes
// first. email.Send has no context support, so an abandoned send keeps
// running in the background until the SMTP connection gives up.
func (n *EmailNotifier) sendContext(ctx context.Context, e *email.Email, addr string, auth smtp.Auth) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultSendTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- n.send(e, addr, auth)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
