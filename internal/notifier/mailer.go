package notifier

import (
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/spec-kit/fault-service/internal/config"
)

// Notifier attempts a single delivery of a plain-text message. Failures are
// the caller's to discard; no retry is performed.
type Notifier interface {
	Send(to, subject, body string) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewSMTPMailer builds an SMTP-backed notifier.
func NewSMTPMailer(cfg config.MailerConfig, logger *zap.Logger) Notifier {
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

func (m *smtpMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return err
	}
	m.logger.Debug("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
