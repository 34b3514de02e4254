package services

import (
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

// Mail providers selectable through EMAIL_PROVIDER
const (
	MailProviderSMTP   = "smtp"
	MailProviderResend = "resend"
	MailProviderLog    = "log"
)

// EmailMessage is one outgoing email
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Tags    map[string]string
}

// Mailer delivers email through one provider
type Mailer interface {
	Send(ctx context.Context, msg *EmailMessage) error
	Provider() string
}

// MailerConfig selects and configures the mail provider
type MailerConfig struct {
	Provider      string
	FromEmail     string
	FromName      string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	ResendAPIKey  string
	ResendBaseURL string
}

// NewMailer builds the mailer named by config.Provider. An empty provider
// falls back to logging messages.
func NewMailer(config *MailerConfig, logger *logrus.Logger) (Mailer, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if config == nil {
		return NewLogMailer(logger), nil
	}

	switch strings.ToLower(config.Provider) {
	case MailProviderSMTP:
		return NewSMTPMailer(config)
	case MailProviderResend:
		return NewResendMailer(config, logger)
	case MailProviderLog, "":
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", config.Provider)
	}
}

func formatFrom(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

type smtpSendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends HTML email over SMTP with optional PLAIN auth
type SMTPMailer struct {
	config *MailerConfig
	send   smtpSendFunc
}

// NewSMTPMailer creates an SMTP mailer
func NewSMTPMailer(config *MailerConfig) (*SMTPMailer, error) {
	if config.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if config.SMTPPort <= 0 {
		return nil, fmt.Errorf("SMTP port must be positive")
	}
	if config.FromEmail == "" {
		return nil, fmt.Errorf("sender email is required")
	}
	return &SMTPMailer{config: config, send: smtp.SendMail}, nil
}

// Provider returns the provider name
func (m *SMTPMailer) Provider() string {
	return MailProviderSMTP
}

// Send delivers the message. net/smtp has no context support, so ctx is
// only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg *EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := formatFrom(m.config.FromName, m.config.FromEmail)

	body := fmt.Sprintf("From: %s\r\n", from)
	body += fmt.Sprintf("To: %s\r\n", msg.To)
	body += fmt.Sprintf("Subject: %s\r\n", msg.Subject)
	body += fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	body += "MIME-Version: 1.0\r\n"
	body += "Content-Type: text/html; charset=UTF-8\r\n"
	body += "\r\n"
	body += msg.HTML

	addr := fmt.Sprintf("%s:%d", m.config.SMTPHost, m.config.SMTPPort)

	var auth smtp.Auth
	if m.config.SMTPUsername != "" && m.config.SMTPPassword != "" {
		auth = smtp.PlainAuth("", m.config.SMTPUsername, m.config.SMTPPassword, m.config.SMTPHost)
	}

	if err := m.send(addr, auth, m.config.FromEmail, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// ResendMailer sends email through the Resend API
type ResendMailer struct {
	client *resend.Client
	from   string
	logger *logrus.Logger
}

// NewResendMailer creates a Resend mailer
func NewResendMailer(config *MailerConfig, logger *logrus.Logger) (*ResendMailer, error) {
	if config.ResendAPIKey == "" {
		return nil, fmt.Errorf("an API key is required for the resend provider")
	}
	if config.FromEmail == "" {
		return nil, fmt.Errorf("sender email is required")
	}

	client := resend.NewClient(config.ResendAPIKey)
	if config.ResendBaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(config.ResendBaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid resend base URL: %w", err)
		}
		client.BaseURL = base
	}

	return &ResendMailer{
		client: client,
		from:   formatFrom(config.FromName, config.FromEmail),
		logger: logger,
	}, nil
}

// Provider returns the provider name
func (m *ResendMailer) Provider() string {
	return MailProviderResend
}

// Send delivers the message
func (m *ResendMailer) Send(ctx context.Context, msg *EmailMessage) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		Tags:    resendTags(msg.Tags),
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"provider": MailProviderResend,
		"email_id": sent.Id,
	}).Debug("Email accepted")
	return nil
}

func resendTags(tags map[string]string) []resend.Tag {
	var out []resend.Tag
	for name, value := range tags {
		out = append(out, resend.Tag{Name: name, Value: value})
	}
	return out
}

// LogMailer writes messages to the log instead of sending them. It is the
// development default when no provider is configured.
type LogMailer struct {
	logger *logrus.Logger
}

// NewLogMailer creates a log mailer
func NewLogMailer(logger *logrus.Logger) *LogMailer {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogMailer{logger: logger}
}

// Provider returns the provider name
func (m *LogMailer) Provider() string {
	return MailProviderLog
}

// Send logs the message including its text body
func (m *LogMailer) Send(ctx context.Context, msg *EmailMessage) error {
	m.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info(msg.Text)
	return nil
}
