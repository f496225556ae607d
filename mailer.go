package accounts

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	gomail "gopkg.in/gomail.v2"
)

// SMTPMailer delivers mail through a reusable SMTP dialer.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger Logger
}

var _ Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(cfg *Config) *SMTPMailer {
	d := gomail.NewDialer(cfg.EmailHost, cfg.EmailPort, cfg.EmailUsername, cfg.EmailPassword)
	// Implicit TLS on the SMTPS port, STARTTLS negotiation elsewhere.
	d.SSL = cfg.EmailPort == 465

	return &SMTPMailer{
		dialer: d,
		from:   cfg.EmailFrom,
		logger: defLogger{},
	}
}

func (m *SMTPMailer) WithLogger(logger Logger) *SMTPMailer {
	m.logger = logger
	return m
}

// Send delivers a plain-text message. Dial errors are wrapped as
// external failures for the caller to roll back on.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled before email dispatch")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.Error("email dispatch failed", "to", to, "error", err)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email sending failed")
	}

	m.logger.Info("email sent", "to", to)
	return nil
}

// resetEmailBody composes the plain-text password reset message.
func resetEmailBody(resetURL string) string {
	return fmt.Sprintf(
		"Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s.\nIf you didn't forget your password, please ignore this email!",
		resetURL,
	)
}

const resetEmailSubject = "Your password reset token (valid for 10 min)"
