package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPProvider delivers mail through a plain SMTP relay.
type SMTPProvider struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPProvider(host, port, username, password, from string) *SMTPProvider {
	return &SMTPProvider{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + p.from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	addr := p.host + ":" + p.port
	if err := smtp.SendMail(addr, auth, p.from, to, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	return nil
}

func (p *SMTPProvider) Name() string {
	return "smtp"
}
