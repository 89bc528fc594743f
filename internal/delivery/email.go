package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"goodfit/internal/model"

	"github.com/resend/resend-go/v2"
)

// EmailSender sends codes via the Resend API.
type EmailSender struct {
	client *resend.Client
	from   string
	ttl    time.Duration
}

// NewEmailSender creates an EmailSender with the given API key and sender address.
// ttl is the code lifetime quoted in the message.
// PRE: apiKey is a valid Resend API key; from is a valid sender address
func NewEmailSender(apiKey, from string, ttl time.Duration) *EmailSender {
	return &EmailSender{
		client: resend.NewClient(apiKey),
		from:   from,
		ttl:    ttl,
	}
}

func codeEmail(code string, ttl time.Duration) (html, text string) {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	html = fmt.Sprintf("<p>Ваш код для входа: <strong>%s</strong></p><p>Код действует %d мин.</p>", code, minutes)
	text = fmt.Sprintf("Ваш код для входа: %s\nКод действует %d мин.", code, minutes)
	return html, text
}

func (s *EmailSender) SendCode(ctx context.Context, to model.Contact, code string) error {
	html, text := codeEmail(code, s.ttl)
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to.Email},
		Subject: "Код для входа в GoodFit",
		Html:    html,
		Text:    text,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		slog.ErrorContext(ctx, "resend_send_failed", "error", err, "to", to.Email)
		return fmt.Errorf("resend send failed: %w", err)
	}

	slog.InfoContext(ctx, "resend_sent", "message_id", sent.Id, "to", to.Email)
	return nil
}
