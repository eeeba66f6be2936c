package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"os"

	"news-trader/internal/logger"
)

// Mailer sends plain-text operator reports over SMTP. Credentials and
// addressing come from the environment (Mailjet-style relay).
type Mailer struct {
	host string
	port string
	from string
}

// NewMailer creates the SMTP notifier. SMTP_HOST, SMTP_PORT and FROM_EMAIL
// configure the relay; SMTP_USER and SMTP_PASSWORD authenticate it.
func NewMailer() *Mailer {
	return &Mailer{
		host: getenv("SMTP_HOST", "in-v3.mailjet.com"),
		port: getenv("SMTP_PORT", "587"),
		from: os.Getenv("FROM_EMAIL"),
	}
}

// Send delivers the body to the recipient. Callers treat failures as
// best-effort; this only reports them.
func (m *Mailer) Send(ctx context.Context, body, recipient string) error {
	user := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASSWORD")
	if user == "" || password == "" {
		return errors.New("SMTP_USER and SMTP_PASSWORD must be set")
	}
	if m.from == "" {
		return errors.New("FROM_EMAIL must be set")
	}
	if recipient == "" {
		return errors.New("recipient required")
	}

	logger.Info(ctx, "Sending notification email", "to", recipient, "from", m.from)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Data Email\r\n\r\n%s\r\n", m.from, recipient, body)
	auth := smtp.PlainAuth("", user, password, m.host)
	addr := m.host + ":" + m.port

	if err := smtp.SendMail(addr, auth, m.from, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
