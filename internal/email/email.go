package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/wneessen/go-mail"
)

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// LogSender logs emails instead of sending them, used in ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "email")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "magic link email (local dev)", "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// SMTPSender delivers through a submission server, upgrading with STARTTLS
// when the server offers it. Every send dials a fresh connection bounded by
// ctx and the client timeout.
type SMTPSender struct {
	client *mail.Client
	from   string
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := buildMessage(s.from, msg)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// DefaultSMTPTimeout bounds dialing and every SMTP command.
const DefaultSMTPTimeout = 10 * time.Second

type Config struct {
	Provider     string
	From         string
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
	SMTPTimeout  time.Duration
}

// NewSender picks the delivery backend named by cfg.Provider.
func NewSender(cfg Config, logger *slog.Logger) (Sender, error) {
	switch cfg.Provider {
	case "", "log":
		return NewLogSender(logger), nil
	case "resend":
		return &ResendSender{
			client: resend.NewClient(cfg.ResendAPIKey),
			from:   cfg.From,
		}, nil
	case "smtp":
		return newSMTPSender(cfg)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

func newSMTPSender(cfg Config) (*SMTPSender, error) {
	timeout := cfg.SMTPTimeout
	if timeout <= 0 {
		timeout = DefaultSMTPTimeout
	}
	opts := []mail.Option{
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPPort == 465 {
		opts = append(opts, mail.WithSSL())
	}
	opts = append(opts, mail.WithPort(cfg.SMTPPort))
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPass),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.SMTPUser
	}
	return &SMTPSender{client: client, from: from}, nil
}
