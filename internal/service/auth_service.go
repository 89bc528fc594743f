package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"goodfit/internal/delivery"
	"goodfit/internal/events"
	"goodfit/internal/model"
	"goodfit/internal/repository"
	"goodfit/internal/utils"

	"github.com/google/uuid"
)

var (
	ErrInvalidContact  = errors.New("email or phone is required")
	ErrRateLimited     = errors.New("a code was sent recently, please wait before requesting another")
	ErrInvalidCode     = errors.New("token has expired or is invalid")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
	ErrDeliveryFailed  = errors.New("failed to send code")
	ErrSessionNotFound = errors.New("session not found or expired")
)

// AuthService issues one-time codes and the sessions they unlock
type AuthService interface {
	RequestOneTimeCode(ctx context.Context, contact model.Contact) error
	VerifyOneTimeCode(ctx context.Context, contact model.Contact, token string) (*model.AuthSession, error)
	Authenticate(ctx context.Context, accessToken string) (*model.Principal, error)
	GetSession(ctx context.Context, accessToken string) (*model.AuthSession, error)
	Refresh(ctx context.Context, accessToken string) (*model.AuthSession, error)
	SignOut(ctx context.Context, accessToken string) error
}

// AuthConfig bounds code and session lifetimes
type AuthConfig struct {
	CodeTTL        time.Duration
	ResendInterval time.Duration
	MaxAttempts    int
	SessionTTL     time.Duration
}

type authService struct {
	identities repository.IdentityRepository
	codes      repository.OTPRepository
	sessions   repository.SessionRepository
	users      repository.UserRepository
	sender     delivery.Sender
	publisher  events.Publisher
	jwtUtil    *utils.JWTUtil
	cfg        AuthConfig
	now        func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	identities repository.IdentityRepository,
	codes repository.OTPRepository,
	sessions repository.SessionRepository,
	users repository.UserRepository,
	sender delivery.Sender,
	publisher events.Publisher,
	jwtUtil *utils.JWTUtil,
	cfg AuthConfig,
) AuthService {
	return &authService{
		identities: identities,
		codes:      codes,
		sessions:   sessions,
		users:      users,
		sender:     sender,
		publisher:  publisher,
		jwtUtil:    jwtUtil,
		cfg:        cfg,
		now:        time.Now,
	}
}

func normalizeContact(c model.Contact) (model.Contact, error) {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	if (c.Email == "") == (c.Phone == "") {
		return c, ErrInvalidContact
	}
	return c, nil
}

// RequestOneTimeCode stores a fresh hashed code for the contact and sends it out
func (s *authService) RequestOneTimeCode(ctx context.Context, contact model.Contact) error {
	contact, err := normalizeContact(contact)
	if err != nil {
		return err
	}
	key := contact.Key()
	now := s.now()

	latest, err := s.codes.FindLatest(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check previous code: %w", err)
	}
	if latest != nil && now.Sub(latest.CreatedAt) < s.cfg.ResendInterval {
		return ErrRateLimited
	}

	code, err := utils.GenerateOTP()
	if err != nil {
		return err
	}
	hash, err := utils.HashOTP(code)
	if err != nil {
		return err
	}

	record := &model.OTPCode{
		ID:         uuid.NewString(),
		ContactKey: key,
		CodeHash:   hash,
		ExpiresAt:  now.Add(s.cfg.CodeTTL),
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return err
	}

	if err := s.sender.SendCode(ctx, contact, code); err != nil {
		slog.ErrorContext(ctx, "otp_delivery_failed", "contact", key, "error", err)
		// An undelivered code must not hold the resend throttle.
		if _, cerr := s.codes.Consume(ctx, record.ID); cerr != nil {
			slog.ErrorContext(ctx, "otp_discard_failed", "contact", key, "error", cerr)
		}
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	slog.InfoContext(ctx, "auth_event", "event", "otp_requested", "contact", key)
	return nil
}

// VerifyOneTimeCode checks the latest code for the contact and opens a session
func (s *authService) VerifyOneTimeCode(ctx context.Context, contact model.Contact, token string) (*model.AuthSession, error) {
	contact, err := normalizeContact(contact)
	if err != nil {
		return nil, err
	}
	key := contact.Key()

	code, err := s.codes.FindLatest(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load code: %w", err)
	}
	if code == nil || !s.now().Before(code.ExpiresAt) {
		return nil, ErrInvalidCode
	}
	if code.Attempts >= s.cfg.MaxAttempts {
		return nil, ErrTooManyAttempts
	}

	if !utils.CheckOTPHash(strings.TrimSpace(token), code.CodeHash) {
		if err := s.codes.IncrementAttempts(ctx, code.ID); err != nil {
			return nil, err
		}
		slog.WarnContext(ctx, "auth_event", "event", "otp_rejected", "contact", key, "attempt", code.Attempts+1)
		return nil, ErrInvalidCode
	}

	consumed, err := s.codes.Consume(ctx, code.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrInvalidCode
	}

	identity, err := s.identities.FindByContact(ctx, contact)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		identity = &model.Identity{
			ID:    uuid.NewString(),
			Email: model.StringPtr(contact.Email),
			Phone: model.StringPtr(contact.Phone),
		}
		if err := s.identities.Create(ctx, identity); err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "auth_event", "event", "identity_created", "identity_id", identity.ID)
	}

	record := &model.SessionRecord{
		ID:         uuid.NewString(),
		IdentityID: identity.ID,
		ExpiresAt:  s.now().Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, record); err != nil {
		return nil, err
	}

	session, err := s.issue(ctx, identity, record.ID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.SubjectSignedIn, identity.ID, record.ID)
	slog.InfoContext(ctx, "auth_event", "event", "signed_in", "identity_id", identity.ID, "session_id", record.ID)
	return session, nil
}

// Authenticate resolves a bearer token to the calling principal. The session
// row must still exist; the role comes from the current users row.
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*model.Principal, error) {
	claims, err := s.jwtUtil.ValidateToken(accessToken)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if _, err := s.liveSession(ctx, claims.SessionID); err != nil {
		return nil, err
	}

	role, err := s.roleOf(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return &model.Principal{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Email:     claims.Email,
		Phone:     claims.Phone,
		Role:      role,
	}, nil
}

// GetSession returns the session behind a still-valid access token
func (s *authService) GetSession(ctx context.Context, accessToken string) (*model.AuthSession, error) {
	claims, err := s.jwtUtil.ValidateToken(accessToken)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if _, err := s.liveSession(ctx, claims.SessionID); err != nil {
		return nil, err
	}
	identity, err := s.identities.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, ErrSessionNotFound
	}

	return &model.AuthSession{
		AccessToken: accessToken,
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        *identity,
	}, nil
}

// Refresh issues a new access token for the same session. The old token may
// already be expired as long as the session row is alive.
func (s *authService) Refresh(ctx context.Context, accessToken string) (*model.AuthSession, error) {
	claims, err := s.jwtUtil.ParseTokenIgnoringExpiry(accessToken)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	record, err := s.liveSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	identity, err := s.identities.FindByID(ctx, record.IdentityID)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, ErrSessionNotFound
	}

	session, err := s.issue(ctx, identity, record.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.SubjectTokenRefreshed, identity.ID, record.ID)
	return session, nil
}

// SignOut deletes the session so its tokens stop authenticating
func (s *authService) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.jwtUtil.ParseTokenIgnoringExpiry(accessToken)
	if err != nil {
		return ErrSessionNotFound
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return err
	}
	s.publish(ctx, events.SubjectSignedOut, claims.UserID, claims.SessionID)
	slog.InfoContext(ctx, "auth_event", "event", "signed_out", "identity_id", claims.UserID, "session_id", claims.SessionID)
	return nil
}

func (s *authService) liveSession(ctx context.Context, sessionID string) (*model.SessionRecord, error) {
	record, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil || !s.now().Before(record.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	return record, nil
}

func (s *authService) roleOf(ctx context.Context, userID string) (model.Role, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil || !user.Role.Valid() {
		return model.RoleUser, nil
	}
	return user.Role, nil
}

func (s *authService) issue(ctx context.Context, identity *model.Identity, sessionID string) (*model.AuthSession, error) {
	role, err := s.roleOf(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.jwtUtil.GenerateToken(utils.TokenSubject{
		UserID:    identity.ID,
		SessionID: sessionID,
		Email:     model.StringValue(identity.Email),
		Phone:     model.StringValue(identity.Phone),
		Role:      string(role),
	})
	if err != nil {
		return nil, err
	}
	return &model.AuthSession{AccessToken: token, ExpiresAt: expiresAt, User: *identity}, nil
}

func (s *authService) publish(ctx context.Context, subject, identityID, sessionID string) {
	event := events.AuthEvent{
		EventType: subject,
		UserID:    identityID,
		SessionID: sessionID,
		At:        s.now(),
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		slog.WarnContext(ctx, "auth_event_publish_failed", "subject", subject, "error", err)
	}
}
