// internal/notify/mailer.go
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"restock-dispatcher/internal/common/logger"
)

// Message is one outbound email.
type Message struct {
	To      string
	From    string
	Subject string
	Body    string
	IsHTML  bool
}

// Mailer is the outbound mail transport.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds mail transport settings for the SMTP provider.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

// SMTPMailer sends mail over SMTP. A missing host short-circuits with a
// logged warning instead of an error, so an unconfigured environment
// degrades to "no mail" rather than failing webhooks.
type SMTPMailer struct {
	config SMTPConfig
	logger logger.Logger
}

func NewSMTPMailer(cfg SMTPConfig, log logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "smtp-mailer"}),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m.config.Host == "" {
		m.logger.Warn("smtp host not configured, skipping send", map[string]interface{}{
			"to": msg.To,
		})
		return nil
	}

	if err := m.validateAddresses(msg); err != nil {
		return fmt.Errorf("validate message: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before sending email: %w", err)
	}

	payload := m.buildMessage(msg)

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if m.config.UseTLS {
		return m.sendWithTLS(addr, auth, msg.From, []string{msg.To}, []byte(payload))
	}

	return smtp.SendMail(addr, auth, msg.From, []string{msg.To}, []byte(payload))
}

func (m *SMTPMailer) validateAddresses(msg Message) error {
	if !isValidEmail(msg.To) {
		return fmt.Errorf("invalid 'to' email address: %s", msg.To)
	}
	if !isValidEmail(msg.From) {
		return fmt.Errorf("invalid 'from' email address: %s", msg.From)
	}
	return nil
}

func isValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	if len(parts[0]) == 0 || len(parts[1]) == 0 {
		return false
	}
	if !strings.Contains(parts[1], ".") {
		return false
	}
	return true
}

func (m *SMTPMailer) buildMessage(msg Message) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("From: %s\r\n", msg.From))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	builder.WriteString("MIME-Version: 1.0\r\n")

	if msg.IsHTML {
		builder.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	} else {
		builder.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	}

	builder.WriteString("\r\n")
	builder.WriteString(msg.Body)

	return builder.String()
}

func (m *SMTPMailer) sendWithTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{
		ServerName: m.config.Host,
	}

	if err = client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}

	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
