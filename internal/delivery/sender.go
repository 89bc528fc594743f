// Package delivery sends one-time codes to users out of band.
package delivery

import (
	"context"
	"errors"
	"log/slog"

	"goodfit/internal/model"
)

// ErrUnsupportedContact is returned when no channel serves the contact.
var ErrUnsupportedContact = errors.New("no delivery channel for contact")

// Sender delivers a one-time code to a contact.
type Sender interface {
	SendCode(ctx context.Context, to model.Contact, code string) error
}

// Router picks the email or SMS channel by contact kind.
type Router struct {
	Email Sender
	SMS   Sender
}

func (r Router) SendCode(ctx context.Context, to model.Contact, code string) error {
	switch {
	case to.Email != "" && r.Email != nil:
		return r.Email.SendCode(ctx, to, code)
	case to.Phone != "" && r.SMS != nil:
		return r.SMS.SendCode(ctx, to, code)
	}
	return ErrUnsupportedContact
}

// LogSender writes codes to the log. Used in development when no provider is configured.
type LogSender struct{}

func (LogSender) SendCode(ctx context.Context, to model.Contact, code string) error {
	slog.WarnContext(ctx, "otp_dev_delivery", "contact", to.Key(), "code", code)
	return nil
}
