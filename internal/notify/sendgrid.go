// Package notify delivers text reports by e-mail.
package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const senderName = "track-clusters"

// Sender delivers one plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SendGrid sends mail through the SendGrid v3 API.
type SendGrid struct {
	APIKey string
	From   string

	// Host overrides the API host, e.g. for tests.
	Host string
}

func (s SendGrid) Send(ctx context.Context, to, subject, body string) error {
	if s.APIKey == "" {
		return fmt.Errorf("notify: sendgrid_api_key is not set")
	}
	if s.From == "" {
		return fmt.Errorf("notify: sender address is not set")
	}

	message := mail.NewSingleEmailPlainText(mail.NewEmail(senderName, s.From), subject, mail.NewEmail(to, to), body)
	client := sendgrid.NewSendClient(s.APIKey)
	if s.Host != "" {
		client.BaseURL = s.Host + "/v3/mail/send"
	}

	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending to %s: %w", to, err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("sending to %s: sendgrid returned %d: %s", to, resp.StatusCode, resp.Body)
	}
	return nil
}
