// Package mail sends plain-text notification emails over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"
)

var (
	// ErrDispatch wraps every failure to hand a message to the mail server.
	ErrDispatch = errors.New("mail dispatch failed")
	// ErrDisabled is returned by a sender built with Enabled=false. Nothing was sent.
	ErrDisabled = errors.New("mail sending disabled")
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP sender configuration.
type Config struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromAddress  string
	DialTimeout  time.Duration
}

// SMTPSender implements Sender via SMTP.
type SMTPSender struct {
	config Config
	auth   smtp.Auth
	logger *slog.Logger
}

// NewSMTPSender creates a new SMTP sender.
// Returns error if enabled but required config is missing.
func NewSMTPSender(config Config, logger *slog.Logger) (*SMTPSender, error) {
	if config.Enabled {
		if config.SMTPHost == "" {
			return nil, errors.New("smtp sender: SMTP host is required when enabled")
		}
		if config.FromAddress == "" {
			return nil, errors.New("smtp sender: from address is required when enabled")
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	if config.SMTPPort == 0 {
		config.SMTPPort = 587
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 10 * time.Second
	}

	var auth smtp.Auth
	if config.SMTPUser != "" && config.SMTPPassword != "" {
		auth = smtp.PlainAuth("", config.SMTPUser, config.SMTPPassword, config.SMTPHost)
	}

	logger.Info("smtp sender configured",
		"enabled", config.Enabled,
		"smtp_host", config.SMTPHost,
		"smtp_port", config.SMTPPort,
		"implicit_tls", config.SMTPPort == 465,
		"from_address", config.FromAddress,
	)

	return &SMTPSender{config: config, auth: auth, logger: logger}, nil
}

// Send delivers msg. A disabled sender returns ErrDisabled.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if !s.config.Enabled {
		s.logger.Warn("smtp sender disabled, skipping send", "to", msg.To, "subject", msg.Subject)
		return ErrDisabled
	}
	if msg.To == "" {
		return fmt.Errorf("%w: empty recipient", ErrDispatch)
	}

	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrDispatch, err)
	}
	return nil
}

func (s *SMTPSender) send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(s.config.SMTPHost, fmt.Sprint(s.config.SMTPPort))
	tlsConfig := &tls.Config{
		ServerName: s.config.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := s.dial(ctx, addr, tlsConfig)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer func() { _ = client.Close() }()

	// Port 465 is already encrypted.
	if s.config.SMTPPort != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}

	if s.auth != nil {
		if err := client.Auth(s.auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(extractEmail(s.config.FromAddress)); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(s.buildMessage(msg)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return client.Quit()
}

func (s *SMTPSender) dial(ctx context.Context, addr string, tlsConfig *tls.Config) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: s.config.DialTimeout}

	if s.config.SMTPPort == 465 {
		td := &tls.Dialer{NetDialer: dialer, Config: tlsConfig}
		conn, err := td.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial smtp tls: %w", err)
		}
		return conn, nil
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial smtp: %w", err)
	}
	return conn, nil
}

// buildMessage constructs the email message with headers.
func (s *SMTPSender) buildMessage(msg Message) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", s.config.FromAddress)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))

	return []byte(b.String())
}

// extractEmail extracts the address from formats like "Name <email@example.com>".
func extractEmail(address string) string {
	if idx := strings.Index(address, "<"); idx != -1 {
		end := strings.Index(address, ">")
		if end > idx {
			return address[idx+1 : end]
		}
	}
	return address
}
