package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"echolog/api/internal/config"
)

// Mailer sends notification mail. Delivery is best-effort: callers treat a
// false return as "not sent" and must not fail their primary operation.
type Mailer struct {
	cfg config.SMTPConfig
	log zerolog.Logger
}

func NewMailer(cfg config.SMTPConfig, log zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log}
}

func (m *Mailer) configured() bool {
	return m.cfg.Host != "" && m.cfg.Username != "" && m.cfg.Password != ""
}

// Send delivers a plain-text mail. Failures are logged, never raised.
func (m *Mailer) Send(to string, subject string, body string) bool {
	if !m.configured() {
		return false
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	msg := strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg)); err != nil {
		m.log.Warn().Err(err).Str("to", to).Msg("mail delivery failed")
		return false
	}
	return true
}

// SendWelcome mails a newly registered user, when enabled by configuration.
func (m *Mailer) SendWelcome(to string) bool {
	if !m.cfg.SendWelcome {
		return false
	}
	name := to
	if at := strings.Index(to, "@"); at > 0 {
		name = to[:at]
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nThanks for registering. Log in to upload recordings, get transcripts and ask questions about them.\n\nContact the administrator to top up your balance for more usage.\n",
		name,
	)
	return m.Send(to, "Welcome to Echolog", body)
}
