package mail

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2/log"
	"gopkg.in/gomail.v2"

	"github.com/ManuelReschke/ServicePortal/internal/pkg/env"
)

// Transport delivers one plain-text message.
type Transport interface {
	Send(to string, subject string, body string) error
}

// SMTPTransport sends emails via SMTP
type SMTPTransport struct {
	dialer *gomail.Dialer
	sender string
}

func NewSMTPTransport(host string, port int, username, password, sender string) *SMTPTransport {
	if sender == "" {
		sender = "no-reply@localhost"
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", sender)
	}
	return &SMTPTransport{
		dialer: gomail.NewDialer(host, port, username, password),
		sender: sender,
	}
}

func NewSMTPTransportFromEnv() *SMTPTransport {
	port, err := strconv.Atoi(env.GetEnv("SMTP_PORT", "587"))
	if err != nil {
		port = 587
	}
	return NewSMTPTransport(
		env.GetEnv("SMTP_HOST", "localhost"),
		port,
		env.GetEnv("SMTP_USERNAME", ""),
		env.GetEnv("SMTP_PASSWORD", ""),
		env.GetEnv("SMTP_SENDER", ""),
	)
}

func (t *SMTPTransport) Send(to string, subject string, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", t.sender)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := t.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	log.Infof("[Mail] Email sent to %s via %s:%d", to, t.dialer.Host, t.dialer.Port)
	return nil
}
