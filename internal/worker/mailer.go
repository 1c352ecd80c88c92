package worker

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/model"
	"github.com/rs/zerolog"
)

// Sender delivers one notification.
type Sender interface {
	Send(ctx context.Context, n model.Notification) error
}

// NewSender returns an SMTP sender when SMTP is configured and a logging
// sender otherwise.
func NewSender(cfg *config.Config, log zerolog.Logger) Sender {
	if cfg.SMTPHost == "" {
		return &LogSender{log: log.With().Str("component", "log_sender").Logger()}
	}
	return &SMTPSender{
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		log:      log.With().Str("component", "smtp_sender").Logger(),
	}
}

// LogSender writes notifications to the log. Used in development.
type LogSender struct {
	log zerolog.Logger
}

func (s *LogSender) Send(_ context.Context, n model.Notification) error {
	s.log.Info().
		Str("channel", string(n.Channel)).
		Str("recipient", n.Recipient).
		Str("subject", n.Subject).
		Str("body", n.Body).
		Msg("Notification")
	return nil
}

// SMTPSender delivers email notifications over SMTP with PLAIN auth.
// Phone notifications have no gateway and are only logged.
type SMTPSender struct {
	addr     string
	host     string
	user     string
	password string
	from     string
	log      zerolog.Logger
}

func (s *SMTPSender) Send(_ context.Context, n model.Notification) error {
	if n.Channel != model.OTPTypeEmail {
		s.log.Warn().Str("channel", string(n.Channel)).Str("recipient", n.Recipient).Msg("No gateway for channel, dropping")
		return nil
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}
	return smtp.SendMail(s.addr, auth, s.from, []string{n.Recipient}, buildMessage(s.from, n))
}

func buildMessage(from string, n model.Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", n.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", n.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(n.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
