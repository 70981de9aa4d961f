package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/rs/zerolog"

	"coursehub-payments/internal/config"
	"coursehub-payments/internal/domain/ports/adapter"
	"coursehub-payments/internal/infra/metrics"
)

// Compile-time check
var _ adapter.Notifier = (*SMTPNotifier)(nil)

// SMTPNotifier sends entitlement emails through a plain SMTP relay.
type SMTPNotifier struct {
	cfg config.SMTPConfig
	log *zerolog.Logger
}

func NewSMTPNotifier(cfg config.SMTPConfig, logger *zerolog.Logger) *SMTPNotifier {
	if cfg.Sender == "" {
		cfg.Sender = "no-reply@localhost"
	}
	return &SMTPNotifier{cfg: cfg, log: logger}
}

func (n *SMTPNotifier) SubscriptionStarted(ctx context.Context, email, name, plan string, endsAt time.Time) error {
	subject := fmt.Sprintf("Your %s subscription is active", plan)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your <b>%s</b> subscription is now active and runs until %s.</p><p>Happy learning!</p>",
		name, plan, endsAt.Format("January 2, 2006"),
	)
	return n.send(email, subject, body)
}

func (n *SMTPNotifier) send(to, subject, body string) error {
	var auth smtp.Auth
	if n.cfg.Username != "" && n.cfg.Password != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", n.cfg.Sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := smtp.SendMail(addr, auth, n.cfg.Sender, []string{to}, msg); err != nil {
		metrics.IncNotification("error")
		n.log.Error().Err(err).Str("to", to).Msg("smtp send failed")
		return err
	}
	metrics.IncNotification("sent")
	n.log.Debug().Str("to", to).Msg("notification email sent")
	return nil
}

// NoopNotifier is used in dev mode when no SMTP relay is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

var _ adapter.Notifier = (*NoopNotifier)(nil)

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: logger}
}

func (n *NoopNotifier) SubscriptionStarted(ctx context.Context, email, name, plan string, endsAt time.Time) error {
	n.log.Info().Str("email", email).Str("plan", plan).Time("ends_at", endsAt).Msg("subscription-started notification (noop)")
	return nil
}
