package service

import (
	"fmt"
	"net/smtp"
	"strings"
)

// EmailService is the SMTP-backed Mailer. When disabled it satisfies the
// interface without touching the network, which keeps local development free
// of SMTP credentials.
type EmailService struct {
	enabled  bool
	host     string
	port     string
	username string
	password string
	from     string
}

func NewEmailService(enabled bool, host, port, username, password, from string) *EmailService {
	if host == "" || from == "" {
		enabled = false
	}
	return &EmailService{
		enabled:  enabled,
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *EmailService) Enabled() bool {
	return s != nil && s.enabled
}

// Send delivers one HTML email through the configured SMTP relay.
func (s *EmailService) Send(to, subject, htmlBody string) error {
	if !s.Enabled() {
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := s.host + ":" + s.port
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to, err)
	}
	return nil
}
