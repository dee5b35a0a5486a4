package alerter

import (
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"
)

// SMTPEmail sends plain-text mail through the SMTP relay configured via
// SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD and EMAIL_FROM.
type SMTPEmail struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewSMTPEmail() *SMTPEmail {
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	user := os.Getenv("SMTP_USER")
	from := os.Getenv("EMAIL_FROM")
	if from == "" {
		from = user
	}

	return &SMTPEmail{
		host:     os.Getenv("SMTP_HOST"),
		port:     port,
		user:     user,
		password: os.Getenv("SMTP_PASSWORD"),
		from:     from,
	}
}

func (e *SMTPEmail) Send(subject, body string, recipients []string) error {
	if e.host == "" || e.user == "" || e.password == "" {
		return fmt.Errorf("smtp not configured")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients configured")
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", e.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	addr := net.JoinHostPort(e.host, e.port)

	if err := smtp.SendMail(addr, auth, e.from, recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
