package model

import "time"

// AuthEvent names a change in the backend auth state.
type AuthEvent string

const (
	AuthEventInitialSession AuthEvent = "INITIAL_SESSION"
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
)

// OTP verification types.
const (
	OTPTypeEmail = "email"
	OTPTypeSMS   = "sms"
)

// Contact is the address a one-time code is sent to. Exactly one field is set.
type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Key returns a stable lookup key for code storage and throttling.
func (c Contact) Key() string {
	if c.Email != "" {
		return "email:" + c.Email
	}
	return "phone:" + c.Phone
}

// Identity is the backend auth identity confirmed by a one-time code.
type Identity struct {
	ID        string    `json:"id"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthSession is the backend's proof of an authenticated identity.
type AuthSession struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        Identity  `json:"user"`
}

// VerifyRequest is the body of a one-time code verification.
type VerifyRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Token string `json:"token" binding:"required"`
	Type  string `json:"type" binding:"required,oneof=email sms"`
}

// OTPCode is a stored, hashed one-time code.
type OTPCode struct {
	ID         string
	ContactKey string
	CodeHash   string
	Attempts   int
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// SessionRecord is the persisted side of an auth session.
type SessionRecord struct {
	ID         string
	IdentityID string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}
