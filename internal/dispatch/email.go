package dispatch

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"trading-dashboard/internal/model"
)

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	Host     string // e.g. "smtp.gmail.com"
	Port     int    // e.g. 587
	From     string
	To       []string
	Username string // empty = unauthenticated relay
	Password string
}

// EmailChannel sends events as plain-text email over SMTP.
// This channel is the one typically wrapped with its own rate-limit guard.
type EmailChannel struct {
	cfg EmailConfig
}

// NewEmailChannel creates an SMTP email channel.
func NewEmailChannel(cfg EmailConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg}
}

func (e *EmailChannel) Name() string { return "email" }

func (e *EmailChannel) Send(ctx context.Context, ev model.AlertEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("[%s] %s", ev.Type, ev.Symbol)
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "%s\r\n\r\nsymbol: %s\r\nvalue: %.8g\r\ntime: %s\r\n",
		ev.Message, ev.Symbol, ev.Value, ev.Time().Format("2006-01-02 15:04:05 UTC"))

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, e.cfg.From, e.cfg.To, []byte(b.String())); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	return nil
}
