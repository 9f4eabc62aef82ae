package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	mail "github.com/go-mail/mail"
	"github.com/rs/zerolog"

	"github.com/roombook/booking-system/internal/core/ports"
)

// TLS modes accepted by SMTPConfig.TLSMode.
const (
	TLSModeAuto     = "auto"
	TLSModeStartTLS = "starttls"
	TLSModeSSL      = "ssl"
	TLSModeNone     = "none"
)

const defaultSMTPTimeout = 10 * time.Second

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLSMode  string
	Timeout  time.Duration
}

// SMTPNotifier delivers messages as multipart (text + html) mail.
type SMTPNotifier struct {
	cfg    SMTPConfig
	dialer *mail.Dialer
	log    zerolog.Logger
}

func NewSMTPNotifier(cfg SMTPConfig, log zerolog.Logger) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp notifier: host and from are required")
	}
	if cfg.TLSMode == "" {
		cfg.TLSMode = TLSModeAuto
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}

	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.Timeout = cfg.Timeout
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}

	switch cfg.TLSMode {
	case TLSModeSSL:
		d.SSL = true
	case TLSModeStartTLS:
		d.StartTLSPolicy = mail.MandatoryStartTLS
	case TLSModeNone:
		d.StartTLSPolicy = mail.NoStartTLS
	case TLSModeAuto:
		d.StartTLSPolicy = mail.OpportunisticStartTLS
	default:
		return nil, fmt.Errorf("smtp notifier: unknown tls mode %q", cfg.TLSMode)
	}

	return &SMTPNotifier{
		cfg:    cfg,
		dialer: d,
		log:    log.With().Str("component", "smtp").Str("host", cfg.Host).Int("port", cfg.Port).Logger(),
	}, nil
}

// Notify dials the server and sends msg. go-mail has no context support, so
// ctx is only checked before dialing.
func (n *SMTPNotifier) Notify(ctx context.Context, msg ports.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := n.dialer.DialAndSend(buildMessage(n.cfg.From, msg)); err != nil {
		n.log.Error().Err(err).Str("to", msg.To).Msg("smtp send failed")
		return fmt.Errorf("smtp send: %w", err)
	}

	n.log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

// buildMessage prefers multipart/alternative when both bodies are present.
func buildMessage(from string, msg ports.Message) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}
	return m
}
