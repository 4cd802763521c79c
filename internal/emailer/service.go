package emailer

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"razorpay_sheets/internal/config"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/rs/zerolog/log"
)

// TransportError is an SMTP or provider failure while submitting a message.
// Callers treat it as non-fatal to the overall run.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("email transport (%s) failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Service submits one message per run to the fixed report recipient.
type Service interface {
	SendReport(subject, plainBody, htmlBody string) error
	// SendTest exercises the transport without running any sync.
	SendTest() error
}

// New selects the transport from the configuration. Incomplete provider
// settings fall back to the mock service so that email stays strictly
// optional.
func New(cfg *config.Config) Service {
	switch cfg.EmailProvider {
	case "smtp":
		if cfg.SMTPServer == "" || cfg.SMTPUser == "" || cfg.SMTPPassword == "" || cfg.SenderEmail == "" || cfg.ReportRecipient == "" {
			log.Warn().Msg("SMTP configuration incomplete, falling back to mock email service")
			return &MockService{}
		}
		log.Info().Str("server", cfg.SMTPServer).Msg("Using SMTP email service")
		return &SMTPService{
			Server:    cfg.SMTPServer,
			Port:      cfg.SMTPPort,
			User:      cfg.SMTPUser,
			Password:  cfg.SMTPPassword,
			Sender:    cfg.SenderEmail,
			Recipient: cfg.ReportRecipient,
		}
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.SenderEmail == "" || cfg.ReportRecipient == "" {
			log.Warn().Msg("Mailgun configuration incomplete, falling back to mock email service")
			return &MockService{}
		}
		log.Info().Str("domain", cfg.MailgunDomain).Msg("Using Mailgun email service")
		return &MailgunService{
			mg:        mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey),
			sender:    fmt.Sprintf("%s <%s>", cfg.SenderName, cfg.SenderEmail),
			recipient: cfg.ReportRecipient,
		}
	default:
		log.Info().Msg("Using mock email service")
		return &MockService{}
	}
}

// SMTPService submits over SMTP with PlainAuth; the connection upgrades to TLS
// via STARTTLS on the submission port.
type SMTPService struct {
	Server    string
	Port      int
	User      string
	Password  string
	Sender    string
	Recipient string
}

func (s *SMTPService) send(subject, contentType, body string) error {
	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0\r\nContent-Type: %s\r\n\r\n%s",
		s.Sender, s.Recipient, subject, contentType, body)

	auth := smtp.PlainAuth("", s.User, s.Password, s.Server)
	addr := fmt.Sprintf("%s:%d", s.Server, s.Port)
	if err := smtp.SendMail(addr, auth, s.Sender, []string{s.Recipient}, []byte(message)); err != nil {
		log.Error().Err(err).Str("to", s.Recipient).Msg("Failed to send email via SMTP")
		return &TransportError{Provider: "smtp", Err: err}
	}
	log.Info().Str("to", s.Recipient).Str("subject", subject).Msg("Email sent via SMTP")
	return nil
}

func (s *SMTPService) SendReport(subject, plainBody, htmlBody string) error {
	return s.send(subject, `text/html; charset="UTF-8"`, htmlBody)
}

func (s *SMTPService) SendTest() error {
	return s.send("Payment links sync: email connectivity test",
		`text/plain; charset="UTF-8"`,
		"This is a connectivity test. The email transport is working.")
}

type MailgunService struct {
	mg        mailgun.Mailgun
	sender    string
	recipient string
}

func (s *MailgunService) SendReport(subject, plainBody, htmlBody string) error {
	message := s.mg.NewMessage(s.sender, subject, plainBody, s.recipient)
	message.SetHtml(htmlBody)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		log.Error().Err(err).Str("to", s.recipient).Str("mailgun_resp", resp).Msg("Failed to send email via Mailgun")
		return &TransportError{Provider: "mailgun", Err: err}
	}
	log.Info().Str("to", s.recipient).Str("id", id).Msg("Email sent via Mailgun")
	return nil
}

func (s *MailgunService) SendTest() error {
	return s.SendReport("Payment links sync: email connectivity test",
		"This is a connectivity test. The email transport is working.",
		"<p>This is a connectivity test. The email transport is working.</p>")
}

// MockService logs instead of sending.
type MockService struct{}

func (m *MockService) SendReport(subject, plainBody, htmlBody string) error {
	log.Info().Str("subject", subject).Int("html_bytes", len(htmlBody)).Msg("MockService: would send report email")
	return nil
}

func (m *MockService) SendTest() error {
	log.Info().Msg("MockService: would send test email")
	return nil
}
