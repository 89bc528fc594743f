package repository

import (
	"context"
	"errors"
	"fmt"

	"goodfit/internal/model"

	"github.com/jackc/pgx/v5"
)

// IdentityRepository stores backend auth identities
type IdentityRepository interface {
	Create(ctx context.Context, identity *model.Identity) error
	FindByContact(ctx context.Context, contact model.Contact) (*model.Identity, error)
	FindByID(ctx context.Context, id string) (*model.Identity, error)
}

// OTPRepository stores hashed one-time codes
type OTPRepository interface {
	Create(ctx context.Context, code *model.OTPCode) error
	FindLatest(ctx context.Context, contactKey string) (*model.OTPCode, error)
	IncrementAttempts(ctx context.Context, id string) error
	Consume(ctx context.Context, id string) (bool, error)
}

// SessionRepository stores auth sessions
type SessionRepository interface {
	Create(ctx context.Context, session *model.SessionRecord) error
	FindByID(ctx context.Context, id string) (*model.SessionRecord, error)
	Delete(ctx context.Context, id string) error
}

type identityRepository struct {
	db DB
}

// NewIdentityRepository creates a new IdentityRepository
func NewIdentityRepository(db DB) IdentityRepository {
	return &identityRepository{db: db}
}

func scanIdentity(row pgx.Row) (*model.Identity, error) {
	i := &model.Identity{}
	if err := row.Scan(&i.ID, &i.Email, &i.Phone, &i.CreatedAt); err != nil {
		return nil, err
	}
	return i, nil
}

// Create inserts a new identity
func (r *identityRepository) Create(ctx context.Context, identity *model.Identity) error {
	sql := `INSERT INTO auth_identities (id, email, phone) VALUES ($1, $2, $3) RETURNING id, email, phone, created_at`
	created, err := scanIdentity(r.db.QueryRow(ctx, sql, identity.ID, identity.Email, identity.Phone))
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}
	*identity = *created
	return nil
}

// FindByContact retrieves the identity owning an email or phone; (nil, nil) when absent
func (r *identityRepository) FindByContact(ctx context.Context, contact model.Contact) (*model.Identity, error) {
	sql := `SELECT id, email, phone, created_at FROM auth_identities WHERE phone = $1`
	arg := contact.Phone
	if contact.Email != "" {
		sql = `SELECT id, email, phone, created_at FROM auth_identities WHERE email = $1`
		arg = contact.Email
	}
	identity, err := scanIdentity(r.db.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find identity by contact: %w", err)
	}
	return identity, nil
}

// FindByID retrieves an identity by id; (nil, nil) when absent
func (r *identityRepository) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	identity, err := scanIdentity(r.db.QueryRow(ctx, `SELECT id, email, phone, created_at FROM auth_identities WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find identity by ID: %w", err)
	}
	return identity, nil
}

type otpRepository struct {
	db DB
}

// NewOTPRepository creates a new OTPRepository
func NewOTPRepository(db DB) OTPRepository {
	return &otpRepository{db: db}
}

// Create stores a hashed code
func (r *otpRepository) Create(ctx context.Context, c *model.OTPCode) error {
	sql := `INSERT INTO otp_codes (id, contact_key, code_hash, expires_at) VALUES ($1, $2, $3, $4) RETURNING created_at`
	if err := r.db.QueryRow(ctx, sql, c.ID, c.ContactKey, c.CodeHash, c.ExpiresAt).Scan(&c.CreatedAt); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}
	return nil
}

// FindLatest returns the most recent unconsumed code for a contact; (nil, nil) when none
func (r *otpRepository) FindLatest(ctx context.Context, contactKey string) (*model.OTPCode, error) {
	c := &model.OTPCode{}
	sql := `SELECT id, contact_key, code_hash, attempts, expires_at, consumed_at, created_at
            FROM otp_codes WHERE contact_key = $1 AND consumed_at IS NULL
            ORDER BY created_at DESC LIMIT 1`
	err := r.db.QueryRow(ctx, sql, contactKey).Scan(
		&c.ID, &c.ContactKey, &c.CodeHash, &c.Attempts, &c.ExpiresAt, &c.ConsumedAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest code: %w", err)
	}
	return c, nil
}

// IncrementAttempts records a failed verification
func (r *otpRepository) IncrementAttempts(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `UPDATE otp_codes SET attempts = attempts + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to record code attempt: %w", err)
	}
	return nil
}

// Consume marks a code used. It reports false when another request consumed it first.
func (r *otpRepository) Consume(ctx context.Context, id string) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, `UPDATE otp_codes SET consumed_at = NOW() WHERE id = $1 AND consumed_at IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("failed to consume code: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

type sessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create stores a new session
func (r *sessionRepository) Create(ctx context.Context, s *model.SessionRecord) error {
	sql := `INSERT INTO auth_sessions (id, identity_id, expires_at) VALUES ($1, $2, $3) RETURNING created_at`
	if err := r.db.QueryRow(ctx, sql, s.ID, s.IdentityID, s.ExpiresAt).Scan(&s.CreatedAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID retrieves a session; (nil, nil) when absent
func (r *sessionRepository) FindByID(ctx context.Context, id string) (*model.SessionRecord, error) {
	s := &model.SessionRecord{}
	err := r.db.QueryRow(ctx, `SELECT id, identity_id, created_at, expires_at FROM auth_sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.IdentityID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return s, nil
}

// Delete removes a session; deleting a missing session is not an error
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM auth_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
