package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"tanrid/internal/auth"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	FromEmail string
	ResetURL  string
}

// Sender delivers a composed message.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends account emails over SMTP.
type EmailNotifier struct {
	cfg    EmailConfig
	sender Sender
	logger *zap.Logger
}

// NewEmailNotifier creates a notifier that dials cfg.SMTPHost for each message.
func NewEmailNotifier(cfg EmailConfig, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		sender: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		logger: logger,
	}
}

// WithSender replaces the SMTP dialer.
func (n *EmailNotifier) WithSender(s Sender) *EmailNotifier {
	n.sender = s
	return n
}

func (n *EmailNotifier) SendWelcome(ctx context.Context, toEmail string) error {
	body := `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Welcome to TanRid Enterprises</h2>
    <p>Your account is ready. You can now sign in with this email address.</p>
  </div>
</body>
</html>`
	return n.send(ctx, toEmail, "Welcome to TanRid Enterprises", body)
}

func (n *EmailNotifier) SendPasswordReset(ctx context.Context, toEmail, rawToken string) error {
	link := n.resetLink(rawToken)
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Reset your TanRid password</h2>
    <p>Use the link below to choose a new password. It expires in %d minutes.</p>
    <p><a href="%s">%s</a></p>
    <p>If you did not ask for a reset you can ignore this email.</p>
  </div>
</body>
</html>`, int(auth.ResetTokenExpiry.Minutes()), link, link)
	return n.send(ctx, toEmail, "Reset your TanRid password", body)
}

func (n *EmailNotifier) resetLink(rawToken string) string {
	u, err := url.Parse(n.cfg.ResetURL)
	if err != nil {
		return n.cfg.ResetURL + "?token=" + url.QueryEscape(rawToken)
	}
	q := u.Query()
	q.Set("token", rawToken)
	u.RawQuery = q.Encode()
	return u.String()
}

func (n *EmailNotifier) send(ctx context.Context, toEmail, subject, body string) error {
	if n.cfg.SMTPHost == "" {
		n.logger.Warn("SMTP_HOST not set, skipping email", zap.String("subject", subject))
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("email sent", zap.String("to", toEmail), zap.String("subject", subject))
	return nil
}
