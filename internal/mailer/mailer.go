// Package mailer delivers recovery messages.
package mailer

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/logging"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ConsoleMailer prints messages to w instead of sending them. Meant for a
// local vault without a mail relay.
type ConsoleMailer struct {
	w   io.Writer
	log logging.Logger
}

func NewConsoleMailer(w io.Writer, log logging.Logger) *ConsoleMailer {
	return &ConsoleMailer{w: w, log: log}
}

func (m *ConsoleMailer) Send(ctx context.Context, to, subject, body string) error {
	if _, err := fmt.Fprintf(m.w, "To: %s\nSubject: %s\n\n%s\n", to, subject, body); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	m.log.Info(ctx, "message printed to console", "to", to, "subject", subject)
	return nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends plain text mail through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	cfg      SMTPConfig
	log      logging.Logger
	now      func() time.Time
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig, log logging.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log, now: time.Now, sendMail: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("invalid header value")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.sendMail(addr, auth, m.cfg.From, []string{to}, m.compose(to, subject, body)); err != nil {
		m.log.Error(ctx, "smtp send failed", "to", to, "error", err)
		return fmt.Errorf("smtp send: %w", err)
	}
	m.log.Info(ctx, "mail sent", "to", to, "subject", subject)
	return nil
}

func (m *SMTPMailer) compose(to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.cfg.From + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + m.now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
