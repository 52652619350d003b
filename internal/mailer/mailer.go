// Package mailer delivers plain-text email.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/mrlokans/library/internal/config"
)

// ErrNotConfigured is returned when SMTP settings are incomplete.
var ErrNotConfigured = errors.New("email configuration is missing")

// Message is a single plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages. Implementations must honor ctx cancellation.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through an SMTP relay, upgrading to TLS when the
// server offers STARTTLS.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	timeout  time.Duration
}

// NewSMTPMailer builds a mailer from configuration.
// Returns ErrNotConfigured when host or sender are missing.
func NewSMTPMailer(cfg config.SMTP) (*SMTPMailer, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	return &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		timeout:  cfg.SendTimeout,
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	email := mail.NewMsg()
	if err := email.From(m.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := email.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", msg.To, err)
	}
	email.Subject(msg.Subject)
	email.SetDate()
	email.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(m.host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	if err := client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.timeout))
	}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}
	return opts
}
