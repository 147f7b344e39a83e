package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/medibot/config"
	"github.com/wneessen/go-mail"
)

// EmailSender delivers one plain-text email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends mail through the configured SMTP account. A connection is
// opened per message.
type SMTPSender struct {
	cfg     config.MailConfig
	timeout time.Duration
}

// NewSMTPSender builds a sender from the mail section of the config.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, timeout: 15 * time.Second}
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.timeout),
	}
	if s.cfg.UseSSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

func (s *SMTPSender) sender() string {
	if s.cfg.DefaultSender != "" {
		return s.cfg.DefaultSender
	}
	return s.cfg.Username
}

func (s *SMTPSender) buildMessage(to, subject, body string) (*mail.Msg, error) {
	from := s.sender()
	if from == "" {
		return nil, errors.New("no sender address configured")
	}
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// SendEmail implements EmailSender.
func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	msg, err := s.buildMessage(to, subject, body)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(s.cfg.Server, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
