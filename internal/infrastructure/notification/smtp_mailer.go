package notification

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/infrastructure/config"
)

const implicitTLSPort = 465

// SMTPMailer sends email through an SMTP relay
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

var _ notification.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates a mailer for cfg. Connections are opened per send.
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// MailerFromConfig returns an SMTP mailer when cfg enables a relay host, or nil
// so callers report the email channel as not configured.
func MailerFromConfig(cfg config.SMTPConfig, logger *zap.Logger) notification.Mailer {
	if !cfg.Enabled || cfg.Host == "" {
		return nil
	}
	return NewSMTPMailer(cfg, logger)
}

// Send delivers msg. Any failure matches notification.ErrTransportFailed.
func (m *SMTPMailer) Send(ctx context.Context, msg notification.Email) error {
	built, err := m.buildMessage(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("%w: create smtp client: %w", notification.ErrTransportFailed, err)
	}

	if err := client.DialAndSendWithContext(ctx, built); err != nil {
		m.logger.Warn("smtp send failed",
			zap.String("host", m.cfg.Host),
			zap.Int("port", m.cfg.Port),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", notification.ErrTransportFailed, err)
	}

	m.logger.Debug("email sent", zap.String("message_id", msg.MessageID))
	return nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.cfg.Timeout),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	switch {
	case m.cfg.Port == implicitTLSPort && m.cfg.TLS != "none":
		opts = append(opts, mail.WithSSL())
	case m.cfg.TLS == "opportunistic":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	case m.cfg.TLS == "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	return opts
}

func (m *SMTPMailer) buildMessage(msg notification.Email) (*mail.Msg, error) {
	out := mail.NewMsg()

	if err := out.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return nil, fmt.Errorf("%w: sender %q: %w", notification.ErrNotConfigured, m.cfg.From, err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("%w: %w", notification.ErrInvalidDestination, err)
	}
	out.Subject(msg.Subject)
	if msg.MessageID != "" {
		out.SetMessageIDWithValue(msg.MessageID)
	} else {
		out.SetMessageID()
	}
	out.SetDate()

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		out.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		out.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		out.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	default:
		out.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	}

	for _, a := range msg.Attachments {
		if err := out.AttachReader(a.Name, bytes.NewReader(a.Data),
			mail.WithFileContentType(mail.ContentType(a.ContentType))); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	return out, nil
}
