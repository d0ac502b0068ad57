package alerts

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sudo-init-do/servicehub/internal/config"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, env EmailEnvelope) error
}

// NewSender picks the delivery backend from configuration. Without one the
// emails are only logged, which keeps local runs free of mail credentials.
func NewSender(cfg config.MailConfig, log zerolog.Logger) (Sender, error) {
	switch cfg.Provider {
	case "plunk":
		return NewPlunkSender(cfg)
	case "smtp":
		return NewSMTPSender(cfg)
	case "", "log":
		return LogSender{log: log}, nil
	default:
		return nil, fmt.Errorf("unknown MAIL_PROVIDER %q", cfg.Provider)
	}
}

// LogSender writes emails to the log instead of delivering them.
type LogSender struct {
	log zerolog.Logger
}

func (s LogSender) Send(_ context.Context, env EmailEnvelope) error {
	s.log.Info().Str("to", env.To).Str("subject", env.Subject).Msg("email (not delivered)")
	return nil
}

type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	replyTo  string
}

func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	if cfg.SMTPHost == "" || cfg.SMTPPort == "" || cfg.SMTPUsername == "" || cfg.SMTPPassword == "" || cfg.SMTPFrom == "" {
		return nil, fmt.Errorf("smtp not configured: set SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM (or set MAIL_PROVIDER=plunk)")
	}
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		replyTo:  cfg.ReplyTo,
	}, nil
}

func isHTML(body string) bool {
	lb := strings.ToLower(body)
	return strings.Contains(lb, "<html") || strings.Contains(lb, "<body") || strings.Contains(lb, "<!doctype html")
}

// buildMessage renders the RFC 5322 message for env.
func buildMessage(from, replyTo string, env EmailEnvelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", env.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", env.Subject)
	if replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", replyTo)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	contentType := "text/plain"
	if isHTML(env.Body) {
		contentType = "text/html"
	}
	fmt.Fprintf(&b, "Content-Type: %s; charset=\"utf-8\"\r\n", contentType)
	b.WriteString("\r\n" + env.Body + "\r\n")
	return b.String()
}

// Send delivers over implicit TLS.
func (s *SMTPSender) Send(ctx context.Context, env EmailEnvelope) error {
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: s.host}}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.host, s.port))
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if err := c.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(s.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(env.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write([]byte(buildMessage(s.from, s.replyTo, env))); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return c.Quit()
}
