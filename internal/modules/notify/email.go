// README: Email notifier backed by Postmark.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/keighl/postmark"
)

type emailClient interface {
	SendEmail(email postmark.Email) (postmark.EmailResponse, error)
}

type EmailNotifier struct {
	client emailClient
	from   string
}

func NewEmailNotifier(serverToken, from string) *EmailNotifier {
	return &EmailNotifier{client: postmark.NewClient(serverToken, ""), from: from}
}

func (n *EmailNotifier) Notify(_ context.Context, msg Message) error {
	if msg.Email == "" {
		return nil
	}
	text := msg.Body()
	_, err := n.client.SendEmail(postmark.Email{
		From:     n.from,
		To:       msg.Email,
		Subject:  msg.Subject(),
		HtmlBody: strings.ReplaceAll(html.EscapeString(text), "\n", "<br>"),
		TextBody: text,
		Tag:      string(msg.Kind),
	})
	if err != nil {
		return fmt.Errorf("send email for order %s: %w", msg.OrderID, err)
	}
	return nil
}
