package dispatch

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/infrastructure/config"
)

// mailSendFunc sends one message and reports the HTTP status SendGrid
// answered with.
type mailSendFunc func(msg *mail.SGMailV3) (status int, body string, err error)

// SendGridSender delivers messages to guests whose contact is an e-mail
// address.
type SendGridSender struct {
	send    mailSendFunc
	from    *mail.Email
	subject string
	sandbox bool
}

// NewSendGridSender creates a sender from configuration.
func NewSendGridSender(cfg config.SendGridConfig) (*SendGridSender, error) {
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		return nil, errors.New("sendgrid: api_key and from_email are required")
	}
	client := sendgrid.NewSendClient(cfg.APIKey)
	send := func(msg *mail.SGMailV3) (int, string, error) {
		resp, err := client.Send(msg)
		if err != nil {
			return 0, "", err
		}
		return resp.StatusCode, resp.Body, nil
	}
	return &SendGridSender{
		send:    send,
		from:    mail.NewEmail(cfg.FromName, cfg.FromEmail),
		subject: cfg.Subject,
		sandbox: cfg.SandboxMode,
	}, nil
}

// Send implements Sender.
func (s *SendGridSender) Send(_ context.Context, msg *automation.QueuedMessage) error {
	to := mail.NewEmail("", msg.To)
	htmlBody := strings.ReplaceAll(html.EscapeString(msg.Body), "\n", "<br>")
	m := mail.NewSingleEmail(s.from, s.subject, to, msg.Body, htmlBody)
	if s.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		m.MailSettings = ms
	}

	status, body, err := s.send(m)
	if err != nil {
		return fmt.Errorf("sendgrid: sending %s: %w", msg.ID, err)
	}
	if status >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", status, body)
	}
	return nil
}
