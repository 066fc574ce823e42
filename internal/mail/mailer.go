package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/guitar-and-frostedglass/diaryd/internal/config"

	gomail "github.com/wneessen/go-mail"
)

// Mailer sends invite emails synchronously, best effort: a send failure is
// reported to the caller (the response carries an emailSent flag) but never
// fails the invite itself.
type Mailer struct {
	host        string
	port        int
	username    string
	password    string
	from        string
	frontendURL string
}

func New(cfg config.Config) *Mailer {
	return &Mailer{
		host:        cfg.SMTPHost,
		port:        cfg.SMTPPort,
		username:    cfg.SMTPUser,
		password:    cfg.SMTPPass,
		from:        cfg.SMTPFrom,
		frontendURL: cfg.FrontendURL,
	}
}

// Configured reports whether SMTP settings are present. When false, sends
// are skipped silently.
func (m *Mailer) Configured() bool {
	return m.host != "" && m.username != "" && m.password != ""
}

func (m *Mailer) SendInvite(ctx context.Context, to, code string, expiresAt time.Time) error {
	if !m.Configured() {
		slog.Warn("smtp not configured, skipping invite email", "to", to)
		return nil
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject("You are invited to Guitar & Frosted Glass")
	msg.SetBodyString(gomail.TypeTextHTML, m.inviteBody(code, expiresAt))

	client, err := gomail.NewClient(m.host,
		gomail.WithPort(m.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.username),
		gomail.WithPassword(m.password),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func (m *Mailer) inviteBody(code string, expiresAt time.Time) string {
	registerURL := fmt.Sprintf("%s/register?code=%s", m.frontendURL, url.QueryEscape(code))
	return fmt.Sprintf(`
<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 32px 24px;">
  <h2 style="text-align: center;">Guitar &amp; Frosted Glass</h2>
  <p style="text-align: center;">You have been invited to join.</p>
  <div style="text-align: center; padding: 24px; border: 1px solid #e2e8f0; border-radius: 12px;">
    <p style="font-size: 13px; margin: 0 0 12px;">Your invite code</p>
    <p style="font-family: monospace; font-size: 32px; letter-spacing: 6px; margin: 0 0 12px;">%s</p>
    <p style="font-size: 12px; margin: 0;">Valid until %s</p>
  </div>
  <div style="text-align: center; margin-top: 24px;">
    <a href="%s">Register now</a>
  </div>
  <p style="text-align: center; font-size: 12px; margin-top: 24px;">
    The code expires in 15 minutes. If you do not know the sender, ignore this email.
  </p>
</div>`, code, expiresAt.Format(time.RFC1123), registerURL)
}
