// Package otp requests one-time codes and exchanges them for a verified
// backend identity.
package otp

import (
	"context"
	"errors"
	"strings"

	"goodfit/internal/apperr"
	"goodfit/internal/backend"
	"goodfit/internal/contact"
	"goodfit/internal/model"
)

// Backend is the part of the backend SDK the gateway needs.
type Backend interface {
	RequestOneTimeCode(ctx context.Context, contact model.Contact) error
	VerifyOneTimeCode(ctx context.Context, contact model.Contact, token string) (*model.AuthSession, error)
}

// Gateway keeps no state between RequestCode and VerifyCode; callers pass the
// contact again.
type Gateway struct {
	backend Backend
}

func NewGateway(b Backend) *Gateway {
	return &Gateway{backend: b}
}

// RequestCode asks the backend to send a code by email or, for phones, by SMS
// to the normalized number.
func (g *Gateway) RequestCode(ctx context.Context, raw string) error {
	addr := contact.ToContact(raw)
	if err := g.backend.RequestOneTimeCode(ctx, addr); err != nil {
		return apperr.WithMessage(apperr.ErrDelivery, backend.Message(err), err)
	}
	return nil
}

// VerifyCode submits code for the contact and returns the identity the
// backend confirmed.
func (g *Gateway) VerifyCode(ctx context.Context, raw, code string) (*model.Identity, error) {
	addr := contact.ToContact(raw)
	session, err := g.backend.VerifyOneTimeCode(ctx, addr, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, backend.ErrBadRequest) {
			return nil, apperr.Wrap(apperr.ErrInvalidCode, err)
		}
		return nil, apperr.Wrap(apperr.ErrVerification, err)
	}
	identity := session.User
	return &identity, nil
}

// State is the step a login attempt has reached.
// Idle -> CodeRequested -> Verified | Failed.
type State int

const (
	Idle State = iota
	CodeRequested
	Verified
	Failed
)

func (s State) String() string {
	switch s {
	case CodeRequested:
		return "code_requested"
	case Verified:
		return "verified"
	case Failed:
		return "failed"
	}
	return "idle"
}
